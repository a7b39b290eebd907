package ledger

import "math"

// Clamp returns the delta that can actually be applied to balance without
// driving it below zero. Positive deltas are never capped.
// PRE: balance >= 0
// POST: balance + result >= 0
func Clamp(balance, requested int) int {
	if requested < -balance {
		return -balance
	}
	return requested
}

// PartnerShare returns round(delta * percentage / 100), rounding half away
// from zero. Primary plus partner may differ by one from a naive split.
// PRE: 0 < percentage <= 100
func PartnerShare(delta, percentage int) int {
	return int(math.Round(float64(delta) * float64(percentage) / 100))
}

// Split is the outcome of clamping a primary and an optional partner change.
type Split struct {
	PlayerPoints  int
	PlayerXP      int
	PartnerPoints int
	PartnerXP     int
}

// ComputeSplit derives the applied deltas for a primary player and a partner
// from freshly read balances. It depends on nothing but its arguments.
// PRE: balances >= 0; percentage in (0,100] when hasPartner
// POST: every balance plus its delta stays >= 0
func ComputeSplit(points, xp, reqPoints, reqXP int, hasPartner bool, partnerPoints, partnerXP, percentage int) Split {
	s := Split{
		PlayerPoints: Clamp(points, reqPoints),
		PlayerXP:     Clamp(xp, reqXP),
	}
	if !hasPartner {
		return s
	}
	s.PartnerPoints = Clamp(partnerPoints, PartnerShare(s.PlayerPoints, percentage))
	s.PartnerXP = Clamp(partnerXP, PartnerShare(s.PlayerXP, percentage))
	return s
}
