package uow

import (
	"context"

	"rentverse/internal/app/outbox"
	domainbooking "rentverse/internal/domain/booking"
	domainproperty "rentverse/internal/domain/property"
	domainuser "rentverse/internal/domain/user"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Users() domainuser.Repository
	Properties() domainproperty.Repository
	Bookings() domainbooking.Repository
	Installments() domainbooking.InstallmentRepository
	Transactions() domainbooking.TransactionRepository
	Conflicts() domainbooking.ConflictLedger
	// Outbox writes share the transaction so records become visible only
	// when the business writes commit.
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
