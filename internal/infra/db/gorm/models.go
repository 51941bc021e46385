package gorm

import (
	"encoding/json"
	"strings"
	"time"

	domainauth "rentverse/internal/domain/auth"
	domainbooking "rentverse/internal/domain/booking"
	domainproperty "rentverse/internal/domain/property"
	"rentverse/internal/domain/shared/daterange"
	"rentverse/internal/domain/shared/money"
	domainuser "rentverse/internal/domain/user"
)

type userModel struct {
	ID           string `gorm:"primaryKey;size:64"`
	Email        string `gorm:"uniqueIndex;size:255"`
	Name         string `gorm:"size:255"`
	PasswordHash string `gorm:"size:255"`
	Roles        string `gorm:"size:128"`
	Blocked      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

func userToModel(u *domainuser.User) userModel {
	roles := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		roles = append(roles, string(role))
	}
	return userModel{
		ID:           string(u.ID),
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Roles:        strings.Join(roles, ","),
		Blocked:      u.Blocked,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (m userModel) toDomain() *domainuser.User {
	var roles []domainuser.Role
	for _, role := range strings.Split(m.Roles, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, domainuser.Role(role))
		}
	}
	return &domainuser.User{
		ID:           domainuser.ID(m.ID),
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		Roles:        roles,
		Blocked:      m.Blocked,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

type sessionModel struct {
	Token     string `gorm:"primaryKey;size:128"`
	UserID    string `gorm:"index;size:64"`
	Roles     string `gorm:"size:128"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

func (sessionModel) TableName() string { return "sessions" }

func sessionToModel(s *domainauth.Session) sessionModel {
	roles := make([]string, 0, len(s.Roles))
	for _, role := range s.Roles {
		roles = append(roles, string(role))
	}
	return sessionModel{
		Token:     string(s.Token),
		UserID:    string(s.UserID),
		Roles:     strings.Join(roles, ","),
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

func (m sessionModel) toDomain() *domainauth.Session {
	var roles []domainuser.Role
	for _, role := range strings.Split(m.Roles, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, domainuser.Role(role))
		}
	}
	return &domainauth.Session{
		Token:     domainauth.Token(m.Token),
		UserID:    domainuser.ID(m.UserID),
		Roles:     roles,
		CreatedAt: m.CreatedAt,
		ExpiresAt: m.ExpiresAt,
	}
}

type propertyModel struct {
	ID           string `gorm:"primaryKey;size:64"`
	LandlordID   string `gorm:"index;size:64"`
	Title        string `gorm:"size:255"`
	Description  string `gorm:"type:text"`
	AddressLine1 string `gorm:"size:255"`
	AddressLine2 string `gorm:"size:255"`
	City         string `gorm:"size:128"`
	Country      string `gorm:"size:128"`
	RateAmount   int64
	RateCurrency string `gorm:"size:3"`
	Bedrooms     int
	Status       string `gorm:"index;size:16"`
	Photos       string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (propertyModel) TableName() string { return "properties" }

func propertyToModel(p *domainproperty.Property) propertyModel {
	photos := ""
	if len(p.PhotoURLs) > 0 {
		if raw, err := json.Marshal(p.PhotoURLs); err == nil {
			photos = string(raw)
		}
	}
	return propertyModel{
		ID:           string(p.ID),
		LandlordID:   string(p.Landlord),
		Title:        p.Title,
		Description:  p.Description,
		AddressLine1: p.Address.Line1,
		AddressLine2: p.Address.Line2,
		City:         p.Address.City,
		Country:      p.Address.Country,
		RateAmount:   p.MonthlyRate.Amount,
		RateCurrency: p.MonthlyRate.Currency,
		Bedrooms:     p.Bedrooms,
		Status:       string(p.Status),
		Photos:       photos,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (m propertyModel) toDomain() *domainproperty.Property {
	var photos []string
	if m.Photos != "" {
		_ = json.Unmarshal([]byte(m.Photos), &photos)
	}
	return &domainproperty.Property{
		ID:          domainproperty.PropertyID(m.ID),
		Landlord:    domainuser.ID(m.LandlordID),
		Title:       m.Title,
		Description: m.Description,
		Address: domainproperty.Address{
			Line1:   m.AddressLine1,
			Line2:   m.AddressLine2,
			City:    m.City,
			Country: m.Country,
		},
		MonthlyRate: money.Money{Amount: m.RateAmount, Currency: m.RateCurrency},
		Bedrooms:    m.Bedrooms,
		Status:      domainproperty.Status(m.Status),
		PhotoURLs:   photos,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type bookingModel struct {
	ID                  string `gorm:"primaryKey;size:64"`
	PropertyID          string `gorm:"index;size:64"`
	TenantID            string `gorm:"index;size:64"`
	LandlordID          string `gorm:"index;size:64"`
	StartDate           time.Time
	EndDate             time.Time
	TotalAmount         int64
	DepositAmount       int64
	Currency            string `gorm:"size:3"`
	PaymentType         string `gorm:"size:16"`
	InstallmentCount    int
	Status              string `gorm:"index;size:16"`
	ContractRef         string `gorm:"size:512"`
	ContractPlaceholder bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (bookingModel) TableName() string { return "bookings" }

func bookingToModel(b *domainbooking.Booking) bookingModel {
	return bookingModel{
		ID:                  string(b.ID),
		PropertyID:          string(b.PropertyID),
		TenantID:            string(b.TenantID),
		LandlordID:          string(b.LandlordID),
		StartDate:           b.Range.Start,
		EndDate:             b.Range.End,
		TotalAmount:         b.TotalAmount.Amount,
		DepositAmount:       b.SecurityDeposit.Amount,
		Currency:            b.TotalAmount.Currency,
		PaymentType:         string(b.PaymentType),
		InstallmentCount:    b.InstallmentCount,
		Status:              string(b.Status),
		ContractRef:         b.ContractRef,
		ContractPlaceholder: b.ContractPlaceholder,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func (m bookingModel) toDomain() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:                  domainbooking.BookingID(m.ID),
		PropertyID:          domainproperty.PropertyID(m.PropertyID),
		TenantID:            domainuser.ID(m.TenantID),
		LandlordID:          domainuser.ID(m.LandlordID),
		Range:               daterange.DateRange{Start: m.StartDate.UTC(), End: m.EndDate.UTC()},
		TotalAmount:         money.Money{Amount: m.TotalAmount, Currency: m.Currency},
		SecurityDeposit:     money.Money{Amount: m.DepositAmount, Currency: m.Currency},
		PaymentType:         domainbooking.PaymentType(m.PaymentType),
		InstallmentCount:    m.InstallmentCount,
		Status:              domainbooking.Status(m.Status),
		ContractRef:         m.ContractRef,
		ContractPlaceholder: m.ContractPlaceholder,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

type installmentModel struct {
	ID         string `gorm:"primaryKey;size:80"`
	BookingID  string `gorm:"size:64;uniqueIndex:idx_installments_booking_number"`
	Number     int    `gorm:"uniqueIndex:idx_installments_booking_number"`
	Amount     int64
	Currency   string `gorm:"size:3"`
	DueDate    time.Time
	Status     string `gorm:"index;size:16"`
	PaidAmount int64
	PaidAt     *time.Time
	PaidMethod string `gorm:"size:16"`
	InvoiceID  string `gorm:"size:128"`
	ExternalID string `gorm:"index;size:128"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (installmentModel) TableName() string { return "installments" }

func installmentToModel(i *domainbooking.Installment) installmentModel {
	return installmentModel{
		ID:         i.ID,
		BookingID:  string(i.BookingID),
		Number:     i.Number,
		Amount:     i.Amount.Amount,
		Currency:   i.Amount.Currency,
		DueDate:    i.DueDate,
		Status:     string(i.Status),
		PaidAmount: i.PaidAmount.Amount,
		PaidAt:     i.PaidAt,
		PaidMethod: string(i.PaidMethod),
		InvoiceID:  i.GatewayInvoiceID,
		ExternalID: i.ExternalID,
		CreatedAt:  i.CreatedAt,
		UpdatedAt:  i.UpdatedAt,
	}
}

func (m installmentModel) toDomain() *domainbooking.Installment {
	ins := &domainbooking.Installment{
		ID:               m.ID,
		BookingID:        domainbooking.BookingID(m.BookingID),
		Number:           m.Number,
		Amount:           money.Money{Amount: m.Amount, Currency: m.Currency},
		DueDate:          m.DueDate.UTC(),
		Status:           domainbooking.InstallmentStatus(m.Status),
		PaidMethod:       domainbooking.PaymentType(m.PaidMethod),
		GatewayInvoiceID: m.InvoiceID,
		ExternalID:       m.ExternalID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.PaidAt != nil {
		at := m.PaidAt.UTC()
		ins.PaidAt = &at
		ins.PaidAmount = money.Money{Amount: m.PaidAmount, Currency: m.Currency}
	}
	return ins
}

type transactionModel struct {
	ID            string `gorm:"primaryKey;size:64"`
	InstallmentID string `gorm:"index;size:80"`
	BookingID     string `gorm:"index;size:64"`
	Amount        int64
	Currency      string `gorm:"size:3"`
	Method        string `gorm:"size:16"`
	Status        string `gorm:"index;size:16"`
	InvoiceID     string `gorm:"size:128"`
	ExternalID    string `gorm:"size:128"`
	FailureReason string `gorm:"size:255"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (transactionModel) TableName() string { return "payment_transactions" }

func transactionToModel(t *domainbooking.PaymentTransaction) transactionModel {
	return transactionModel{
		ID:            t.ID,
		InstallmentID: t.InstallmentID,
		BookingID:     string(t.BookingID),
		Amount:        t.Amount.Amount,
		Currency:      t.Amount.Currency,
		Method:        string(t.Method),
		Status:        string(t.Status),
		InvoiceID:     t.GatewayInvoiceID,
		ExternalID:    t.ExternalID,
		FailureReason: t.FailureReason,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (m transactionModel) toDomain() *domainbooking.PaymentTransaction {
	return &domainbooking.PaymentTransaction{
		ID:               m.ID,
		InstallmentID:    m.InstallmentID,
		BookingID:        domainbooking.BookingID(m.BookingID),
		Amount:           money.Money{Amount: m.Amount, Currency: m.Currency},
		Method:           domainbooking.PaymentType(m.Method),
		Status:           domainbooking.TransactionStatus(m.Status),
		GatewayInvoiceID: m.InvoiceID,
		ExternalID:       m.ExternalID,
		FailureReason:    m.FailureReason,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

type conflictModel struct {
	ID         string `gorm:"primaryKey;size:64"`
	PropertyID string `gorm:"index;size:64"`
	BookingID  string `gorm:"index;size:64"`
	StartDate  time.Time
	EndDate    time.Time
	CreatedAt  time.Time
}

func (conflictModel) TableName() string { return "booking_conflicts" }

func conflictToModel(c *domainbooking.ConflictRecord) conflictModel {
	return conflictModel{
		ID:         c.ID,
		PropertyID: string(c.PropertyID),
		BookingID:  string(c.BookingID),
		StartDate:  c.Range.Start,
		EndDate:    c.Range.End,
		CreatedAt:  c.CreatedAt,
	}
}

func (m conflictModel) toDomain() *domainbooking.ConflictRecord {
	return &domainbooking.ConflictRecord{
		ID:         m.ID,
		PropertyID: domainproperty.PropertyID(m.PropertyID),
		BookingID:  domainbooking.BookingID(m.BookingID),
		Range:      daterange.DateRange{Start: m.StartDate.UTC(), End: m.EndDate.UTC()},
		CreatedAt:  m.CreatedAt,
	}
}

type outboxModel struct {
	ID          string `gorm:"primaryKey;size:128"`
	Kind        string `gorm:"size:32"`
	Name        string `gorm:"size:128"`
	Aggregate   string `gorm:"size:64"`
	Payload     []byte
	Headers     string `gorm:"type:text"`
	State       string `gorm:"index:idx_outbox_state_next;size:16"`
	Attempts    int
	NextAttempt time.Time `gorm:"index:idx_outbox_state_next"`
	ClaimedBy   string    `gorm:"size:64"`
	ClaimedAt   *time.Time
	SentAt      *time.Time
	LastError   string `gorm:"size:512"`
	OccurredAt  time.Time
	CreatedAt   time.Time
}

func (outboxModel) TableName() string { return "app_outbox" }

type idempotencyModel struct {
	Key        string `gorm:"primaryKey;size:128"`
	Payload    []byte
	Error      string `gorm:"size:512"`
	OccurredAt time.Time
	CreatedAt  time.Time `gorm:"index"`
}

func (idempotencyModel) TableName() string { return "app_idempotency" }
