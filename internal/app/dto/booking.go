package dto

import (
	"time"

	domainbooking "rentverse/internal/domain/booking"
	domainproperty "rentverse/internal/domain/property"
	"rentverse/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type BookingPropertySnapshot struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Line1    string `json:"address_line1"`
	City     string `json:"city"`
	Country  string `json:"country"`
	PhotoURL string `json:"photo_url"`
}

type InstallmentView struct {
	ID         string     `json:"id"`
	BookingID  string     `json:"booking_id"`
	Number     int        `json:"number"`
	Amount     MoneyDTO   `json:"amount"`
	DueDate    time.Time  `json:"due_date"`
	Status     string     `json:"status"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	PaidMethod string     `json:"paid_method,omitempty"`
}

type BookingView struct {
	ID                  string                  `json:"id"`
	Property            BookingPropertySnapshot `json:"property"`
	TenantID            string                  `json:"tenant_id"`
	LandlordID          string                  `json:"landlord_id"`
	StartDate           time.Time               `json:"start_date"`
	EndDate             time.Time               `json:"end_date"`
	Total               MoneyDTO                `json:"total"`
	SecurityDeposit     MoneyDTO                `json:"security_deposit"`
	PaymentType         string                  `json:"payment_type"`
	Status              string                  `json:"status"`
	Phase               string                  `json:"phase"`
	ContractURL         string                  `json:"contract_url,omitempty"`
	ContractPlaceholder bool                    `json:"contract_placeholder,omitempty"`
	Installments        []InstallmentView       `json:"installments,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
}

type BookingCollection struct {
	Items []BookingView `json:"items"`
}

type InstallmentCollection struct {
	Items []InstallmentView `json:"items"`
}

type ConflictView struct {
	BookingID string    `json:"booking_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type AvailabilityView struct {
	PropertyID string         `json:"property_id"`
	Available  bool           `json:"available"`
	Conflicts  []ConflictView `json:"conflicts,omitempty"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
	}
}

func MapInstallmentView(ins *domainbooking.Installment, now time.Time) InstallmentView {
	view := InstallmentView{
		ID:        ins.ID,
		BookingID: string(ins.BookingID),
		Number:    ins.Number,
		Amount:    MapMoney(ins.Amount),
		DueDate:   ins.DueDate,
		Status:    string(ins.EffectiveStatus(now)),
	}
	if ins.PaidAt != nil {
		view.PaidAt = ins.PaidAt
		view.PaidMethod = string(ins.PaidMethod)
	}
	return view
}

func MapInstallmentViews(items []*domainbooking.Installment, now time.Time) []InstallmentView {
	views := make([]InstallmentView, 0, len(items))
	for _, ins := range items {
		views = append(views, MapInstallmentView(ins, now))
	}
	return views
}

func MapBookingView(booking *domainbooking.Booking, prop *domainproperty.Property, installments []*domainbooking.Installment, now time.Time) BookingView {
	snapshot := BookingPropertySnapshot{
		ID: string(booking.PropertyID),
	}
	if prop != nil {
		snapshot.Title = prop.Title
		snapshot.Line1 = prop.Address.Line1
		snapshot.City = prop.Address.City
		snapshot.Country = prop.Address.Country
		if len(prop.PhotoURLs) > 0 {
			snapshot.PhotoURL = prop.PhotoURLs[0]
		}
	}
	view := BookingView{
		ID:                  string(booking.ID),
		Property:            snapshot,
		TenantID:            string(booking.TenantID),
		LandlordID:          string(booking.LandlordID),
		StartDate:           booking.Range.Start,
		EndDate:             booking.Range.End,
		Total:               MapMoney(booking.TotalAmount),
		SecurityDeposit:     MapMoney(booking.SecurityDeposit),
		PaymentType:         string(booking.PaymentType),
		Status:              string(booking.Status),
		Phase:               string(booking.EffectivePhase(now)),
		ContractURL:         booking.ContractRef,
		ContractPlaceholder: booking.ContractPlaceholder,
		CreatedAt:           booking.CreatedAt,
	}
	if len(installments) > 0 {
		view.Installments = MapInstallmentViews(installments, now)
	}
	return view
}

func MapConflictViews(records []*domainbooking.ConflictRecord) []ConflictView {
	views := make([]ConflictView, 0, len(records))
	for _, rec := range records {
		views = append(views, ConflictView{
			BookingID: string(rec.BookingID),
			StartDate: rec.Range.Start,
			EndDate:   rec.Range.End,
		})
	}
	return views
}
