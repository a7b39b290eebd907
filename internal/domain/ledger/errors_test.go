package ledger_test

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"clubledger/internal/domain/ledger"
)

var fixedTime = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

func TestErrors_As(t *testing.T) {
	var err error = fmt.Errorf("apply: %w", ledger.Invalid("partner_id", "partner must differ from player"))

	var ve *ledger.ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("errors.As did not find ValidationError")
	}
	if ve.Field != "partner_id" {
		t.Errorf("Field = %q, want partner_id", ve.Field)
	}
}

func TestConflictError_Unwrap(t *testing.T) {
	err := &ledger.ConflictError{Attempts: 5, Err: sql.ErrConnDone}
	if !errors.Is(err, sql.ErrConnDone) {
		t.Error("ConflictError does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "5 attempts") {
		t.Errorf("Error() = %q, want attempt count", err.Error())
	}
}

func TestPartialBatchFailure_Error(t *testing.T) {
	err := &ledger.PartialBatchFailure{
		ChunkIndex:      1,
		TotalChunks:     3,
		FailedPlayerIDs: []string{"p7", "p8"},
		Err:             errors.New("disk full"),
	}
	msg := err.Error()
	if !strings.Contains(msg, "chunk 2/3") || !strings.Contains(msg, "p7,p8") {
		t.Errorf("Error() = %q, want chunk position and failed players", msg)
	}
}
