package ledger_test

import (
	"testing"

	"clubledger/internal/domain/ledger"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		balance   int
		requested int
		want      int
	}{
		{"positive is never capped", 0, 1_000_000, 1_000_000},
		{"small deduction", 30, -10, -10},
		{"deduction to exactly zero", 10, -10, -10},
		{"deduction below zero is clamped", 4, -10, -4},
		{"deduction from empty balance", 0, -10, 0},
		{"zero delta", 7, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ledger.Clamp(tt.balance, tt.requested)
			if got != tt.want {
				t.Errorf("Clamp(%d, %d) = %d, want %d", tt.balance, tt.requested, got, tt.want)
			}
			if tt.balance+got < 0 {
				t.Errorf("balance went negative: %d", tt.balance+got)
			}
		})
	}
}

func TestPartnerShare(t *testing.T) {
	tests := []struct {
		delta, pct, want int
	}{
		{20, 50, 10},
		{15, 50, 8},   // 7.5 rounds up
		{-15, 50, -8}, // half away from zero
		{25, 30, 8},   // 7.5
		{10, 100, 10},
		{1, 33, 0},
	}
	for _, tt := range tests {
		if got := ledger.PartnerShare(tt.delta, tt.pct); got != tt.want {
			t.Errorf("PartnerShare(%d, %d) = %d, want %d", tt.delta, tt.pct, got, tt.want)
		}
	}
}

// TestComputeSplit_PartnerClampedIndependently covers a partner whose own
// balance is below its share of a deduction.
func TestComputeSplit_PartnerClampedIndependently(t *testing.T) {
	s := ledger.ComputeSplit(100, 100, -20, -20, true, 6, 50, 50)
	if s.PlayerPoints != -20 || s.PlayerXP != -20 {
		t.Fatalf("player deltas = %d/%d, want -20/-20", s.PlayerPoints, s.PlayerXP)
	}
	if s.PartnerPoints != -6 {
		t.Errorf("PartnerPoints = %d, want -6 (clamped)", s.PartnerPoints)
	}
	if s.PartnerXP != -10 {
		t.Errorf("PartnerXP = %d, want -10", s.PartnerXP)
	}
}

func TestComputeSplit_PartnerShareOfClampedPrimary(t *testing.T) {
	// Primary can only lose 4, so the partner share is taken from 4, not 20.
	s := ledger.ComputeSplit(4, 4, -20, -20, true, 100, 100, 50)
	if s.PlayerPoints != -4 {
		t.Fatalf("PlayerPoints = %d, want -4", s.PlayerPoints)
	}
	if s.PartnerPoints != -2 {
		t.Errorf("PartnerPoints = %d, want -2", s.PartnerPoints)
	}
}

func TestComputeSplit_NoPartner(t *testing.T) {
	s := ledger.ComputeSplit(0, 0, 20, 20, false, 0, 0, 0)
	if s.PlayerPoints != 20 || s.PartnerPoints != 0 || s.PartnerXP != 0 {
		t.Errorf("split = %+v, want player 20 and no partner share", s)
	}
}

func TestEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		entry   ledger.Entry
		wantErr error
	}{
		{"valid", ledger.Entry{PlayerID: "p1", Reason: "Training", Timestamp: fixedTime}, nil},
		{"missing player", ledger.Entry{Reason: "Training", Timestamp: fixedTime}, ledger.ErrEmptyPlayerID},
		{"missing reason", ledger.Entry{PlayerID: "p1", Timestamp: fixedTime}, ledger.ErrEmptyReason},
		{"missing timestamp", ledger.Entry{PlayerID: "p1", Reason: "Training"}, ledger.ErrZeroTimestamp},
		{"self partner", ledger.Entry{PlayerID: "p1", PartnerID: "p1", Reason: "x", Timestamp: fixedTime}, ledger.ErrSelfPartner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.entry.Validate(); err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
