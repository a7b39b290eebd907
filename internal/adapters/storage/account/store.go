package account

import (
	"context"

	domain "clubledger/internal/domain/account"
)

// Store persists player accounts.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	Save(ctx context.Context, value domain.Account) error
	List(ctx context.Context, filter ListFilter) ([]domain.Account, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit      int
	Offset     int
	SubgroupID string
}
