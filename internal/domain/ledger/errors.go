package ledger

import (
	"fmt"
	"strings"
)

// ValidationError reports bad caller input. It is raised before any store access.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Msg
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// Invalid is shorthand for constructing a ValidationError.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// EligibilityError reports that a player may not receive a reward.
// Reads may have happened; no writes have.
type EligibilityError struct {
	PlayerID string
	ItemID   string
	Reason   string
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("not eligible: player %s, item %s: %s", e.PlayerID, e.ItemID, e.Reason)
}

// ConflictError is returned once concurrent-write retries are exhausted.
type ConflictError struct {
	Attempts int
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("commit conflict after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// PartialBatchFailure reports an attendance commit that failed part way.
// Chunks before ChunkIndex are committed and stay committed.
type PartialBatchFailure struct {
	ChunkIndex         int
	TotalChunks        int
	CommittedPlayerIDs []string
	FailedPlayerIDs    []string
	Err                error
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("attendance chunk %d/%d failed (players %s): %v",
		e.ChunkIndex+1, e.TotalChunks, strings.Join(e.FailedPlayerIDs, ","), e.Err)
}

func (e *PartialBatchFailure) Unwrap() error { return e.Err }
