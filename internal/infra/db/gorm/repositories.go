package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainauth "rentverse/internal/domain/auth"
	domainbooking "rentverse/internal/domain/booking"
	domainproperty "rentverse/internal/domain/property"
	"rentverse/internal/domain/shared/daterange"
	domainuser "rentverse/internal/domain/user"
)

func translate(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

// rowLock builds a FOR UPDATE clause on dialects that support it.
// SQLite serializes writers on its own, so the clause is skipped there.
func rowLock(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func upsert(db *gorm.DB, model any) error {
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}

type userRepository struct{ db *gorm.DB }

// NewUserRepository exposes the user table outside a unit of work, for
// authentication lookups.
func NewUserRepository(db *gorm.DB) domainuser.Repository {
	return &userRepository{db: db}
}

func (r *userRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	var model userModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", string(id)).Error; err != nil {
		return nil, translate(err, domainuser.ErrNotFound)
	}
	return model.toDomain(), nil
}

func (r *userRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	var model userModel
	if err := r.db.WithContext(ctx).First(&model, "email = ?", email).Error; err != nil {
		return nil, translate(err, domainuser.ErrNotFound)
	}
	return model.toDomain(), nil
}

func (r *userRepository) Save(ctx context.Context, user *domainuser.User) error {
	model := userToModel(user)
	return upsert(r.db.WithContext(ctx), &model)
}

type sessionStore struct{ db *gorm.DB }

// NewSessionStore backs bearer-token sessions with the database.
func NewSessionStore(db *gorm.DB) domainauth.SessionStore {
	return &sessionStore{db: db}
}

func (s *sessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	model := sessionToModel(session)
	return upsert(s.db.WithContext(ctx), &model)
}

func (s *sessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	var model sessionModel
	if err := s.db.WithContext(ctx).First(&model, "token = ?", string(token)).Error; err != nil {
		return nil, translate(err, domainauth.ErrSessionNotFound)
	}
	return model.toDomain(), nil
}

func (s *sessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	return s.db.WithContext(ctx).Delete(&sessionModel{}, "token = ?", string(token)).Error
}

func (s *sessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	return s.db.WithContext(ctx).Delete(&sessionModel{}, "user_id = ?", string(userID)).Error
}

type propertyRepository struct{ db *gorm.DB }

func (r *propertyRepository) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	var model propertyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", string(id)).Error; err != nil {
		return nil, translate(err, domainproperty.ErrNotFound)
	}
	return model.toDomain(), nil
}

func (r *propertyRepository) ByIDForUpdate(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	var model propertyModel
	if err := rowLock(r.db.WithContext(ctx)).First(&model, "id = ?", string(id)).Error; err != nil {
		return nil, translate(err, domainproperty.ErrNotFound)
	}
	return model.toDomain(), nil
}

func (r *propertyRepository) Save(ctx context.Context, prop *domainproperty.Property) error {
	model := propertyToModel(prop)
	return upsert(r.db.WithContext(ctx), &model)
}

func (r *propertyRepository) ListByLandlord(ctx context.Context, landlord domainuser.ID) ([]*domainproperty.Property, error) {
	var models []propertyModel
	err := r.db.WithContext(ctx).
		Where("landlord_id = ?", string(landlord)).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return mapModels(models, propertyModel.toDomain), nil
}

func (r *propertyRepository) ListPublished(ctx context.Context, limit int) ([]*domainproperty.Property, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", string(domainproperty.StatusListed)).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []propertyModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return mapModels(models, propertyModel.toDomain), nil
}

type bookingRepository struct{ db *gorm.DB }

func (r *bookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var model bookingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", string(id)).Error; err != nil {
		return nil, translate(err, domainbooking.ErrNotFound)
	}
	return model.toDomain(), nil
}

func (r *bookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	model := bookingToModel(b)
	return upsert(r.db.WithContext(ctx), &model)
}

func (r *bookingRepository) ListByTenant(ctx context.Context, tenant domainuser.ID) ([]*domainbooking.Booking, error) {
	var models []bookingModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", string(tenant)).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return mapModels(models, bookingModel.toDomain), nil
}

func (r *bookingRepository) ListByProperty(ctx context.Context, id domainproperty.PropertyID) ([]*domainbooking.Booking, error) {
	var models []bookingModel
	err := r.db.WithContext(ctx).
		Where("property_id = ?", string(id)).
		Order("start_date ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return mapModels(models, bookingModel.toDomain), nil
}

type installmentRepository struct{ db *gorm.DB }

func (r *installmentRepository) ByID(ctx context.Context, id string) (*domainbooking.Installment, error) {
	var model installmentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, domainbooking.ErrInstallmentNotFound)
	}
	return model.toDomain(), nil
}

func (r *installmentRepository) ByExternalID(ctx context.Context, externalID string) (*domainbooking.Installment, error) {
	if externalID == "" {
		return nil, domainbooking.ErrInstallmentNotFound
	}
	var model installmentModel
	if err := r.db.WithContext(ctx).First(&model, "external_id = ?", externalID).Error; err != nil {
		return nil, translate(err, domainbooking.ErrInstallmentNotFound)
	}
	return model.toDomain(), nil
}

func (r *installmentRepository) Save(ctx context.Context, ins *domainbooking.Installment) error {
	model := installmentToModel(ins)
	return upsert(r.db.WithContext(ctx), &model)
}

func (r *installmentRepository) SaveAll(ctx context.Context, ins []*domainbooking.Installment) error {
	if len(ins) == 0 {
		return nil
	}
	models := make([]installmentModel, 0, len(ins))
	for _, i := range ins {
		models = append(models, installmentToModel(i))
	}
	return r.db.WithContext(ctx).Create(&models).Error
}

func (r *installmentRepository) ListByBooking(ctx context.Context, id domainbooking.BookingID) ([]*domainbooking.Installment, error) {
	var models []installmentModel
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", string(id)).
		Order("number ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return mapModels(models, installmentModel.toDomain), nil
}

func (r *installmentRepository) ListByTenant(ctx context.Context, tenant domainuser.ID) ([]*domainbooking.Installment, error) {
	return r.listByTenant(ctx, tenant, false)
}

func (r *installmentRepository) ListUnpaidByTenant(ctx context.Context, tenant domainuser.ID) ([]*domainbooking.Installment, error) {
	return r.listByTenant(ctx, tenant, true)
}

func (r *installmentRepository) listByTenant(ctx context.Context, tenant domainuser.ID, unpaidOnly bool) ([]*domainbooking.Installment, error) {
	query := r.db.WithContext(ctx).
		Joins("JOIN bookings ON bookings.id = installments.booking_id").
		Where("bookings.tenant_id = ?", string(tenant)).
		Order("installments.due_date ASC, installments.number ASC")
	if unpaidOnly {
		query = query.Where("installments.status = ?", string(domainbooking.InstallmentUnpaid))
	}
	var models []installmentModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return mapModels(models, installmentModel.toDomain), nil
}

type transactionRepository struct{ db *gorm.DB }

func (r *transactionRepository) Save(ctx context.Context, tx *domainbooking.PaymentTransaction) error {
	model := transactionToModel(tx)
	return upsert(r.db.WithContext(ctx), &model)
}

func (r *transactionRepository) ListByInstallment(ctx context.Context, installmentID string) ([]*domainbooking.PaymentTransaction, error) {
	var models []transactionModel
	err := r.db.WithContext(ctx).
		Where("installment_id = ?", installmentID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return mapModels(models, transactionModel.toDomain), nil
}

func (r *transactionRepository) LatestPendingByInstallment(ctx context.Context, installmentID string) (*domainbooking.PaymentTransaction, error) {
	var model transactionModel
	err := r.db.WithContext(ctx).
		Where("installment_id = ? AND status = ?", installmentID, string(domainbooking.TransactionPending)).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, translate(err, domainbooking.ErrNoPendingTransaction)
	}
	return model.toDomain(), nil
}

type conflictLedger struct{ db *gorm.DB }

func (l *conflictLedger) Overlapping(ctx context.Context, id domainproperty.PropertyID, dr daterange.DateRange) ([]*domainbooking.ConflictRecord, error) {
	var models []conflictModel
	// Inclusive overlap: existing.end >= requested.start && existing.start <= requested.end.
	err := l.db.WithContext(ctx).
		Where("property_id = ? AND end_date >= ? AND start_date <= ?", string(id), dr.Start, dr.End).
		Order("start_date ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return mapModels(models, conflictModel.toDomain), nil
}

func (l *conflictLedger) Record(ctx context.Context, rec *domainbooking.ConflictRecord) error {
	model := conflictToModel(rec)
	return l.db.WithContext(ctx).Create(&model).Error
}

func (l *conflictLedger) ReleaseByBooking(ctx context.Context, id domainbooking.BookingID) error {
	return l.db.WithContext(ctx).Delete(&conflictModel{}, "booking_id = ?", string(id)).Error
}

func mapModels[M any, D any](models []M, convert func(M) D) []D {
	out := make([]D, 0, len(models))
	for _, model := range models {
		out = append(out, convert(model))
	}
	return out
}
