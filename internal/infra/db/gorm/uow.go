package gorm

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	appoutbox "rentverse/internal/app/outbox"
	"rentverse/internal/app/uow"
	domainbooking "rentverse/internal/domain/booking"
	domainproperty "rentverse/internal/domain/property"
	domainuser "rentverse/internal/domain/user"
)

var ErrUnitOfWorkNotConfigured = errors.New("gorm: unit of work factory missing database")

// Factory wires database transactions into the generic UnitOfWork
// interface. Every repository handed out by a unit shares its
// transaction, outbox writes included.
type Factory struct {
	DB *gorm.DB
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	var tx *gorm.DB
	if opts.ReadOnly && f.DB.Dialector.Name() == "postgres" {
		tx = f.DB.WithContext(ctx).Begin(&sql.TxOptions{ReadOnly: true})
	} else {
		tx = f.DB.WithContext(ctx).Begin()
	}
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Unit{tx: tx}, nil
}

type Unit struct {
	tx   *gorm.DB
	done bool
}

func (u *Unit) Users() domainuser.Repository          { return &userRepository{db: u.tx} }
func (u *Unit) Properties() domainproperty.Repository { return &propertyRepository{db: u.tx} }
func (u *Unit) Bookings() domainbooking.Repository    { return &bookingRepository{db: u.tx} }
func (u *Unit) Installments() domainbooking.InstallmentRepository {
	return &installmentRepository{db: u.tx}
}
func (u *Unit) Transactions() domainbooking.TransactionRepository {
	return &transactionRepository{db: u.tx}
}
func (u *Unit) Conflicts() domainbooking.ConflictLedger { return &conflictLedger{db: u.tx} }
func (u *Unit) Outbox() appoutbox.Outbox                { return &OutboxStore{db: u.tx} }

func (u *Unit) Commit(context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Commit().Error
}

func (u *Unit) Rollback(context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Rollback().Error
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
