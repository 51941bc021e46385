package property

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentverse/internal/domain/shared/money"
	"rentverse/internal/domain/user"
)

var (
	ErrIDRequired       = errors.New("property: id is required")
	ErrLandlordRequired = errors.New("property: landlord id is required")
	ErrTitleRequired    = errors.New("property: title is required")
	ErrRateInvalid      = errors.New("property: monthly rate must be positive")
	ErrInvalidState     = errors.New("property: invalid state transition")
	ErrNotFound         = errors.New("property: not found")
	ErrNotListed        = errors.New("property: not accepting bookings")
	ErrNotOwned         = errors.New("property: not owned by landlord")
)

type PropertyID string

type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusListed   Status = "LISTED"
	StatusUnlisted Status = "UNLISTED"
)

type Address struct {
	Line1   string
	Line2   string
	City    string
	Country string
}

type Property struct {
	ID          PropertyID
	Landlord    user.ID
	Title       string
	Description string
	Address     Address
	MonthlyRate money.Money
	Bedrooms    int
	Status      Status
	PhotoURLs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Repository interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
	// ByIDForUpdate locks the property row for the rest of the
	// transaction; booking creation uses it to serialize conflict checks.
	ByIDForUpdate(ctx context.Context, id PropertyID) (*Property, error)
	Save(ctx context.Context, p *Property) error
	ListByLandlord(ctx context.Context, landlord user.ID) ([]*Property, error)
	ListPublished(ctx context.Context, limit int) ([]*Property, error)
}

type CreateParams struct {
	ID          PropertyID
	Landlord    user.ID
	Title       string
	Description string
	Address     Address
	MonthlyRate money.Money
	Bedrooms    int
	CreatedAt   time.Time
}

func NewProperty(params CreateParams) (*Property, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Landlord)) == "" {
		return nil, ErrLandlordRequired
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if params.MonthlyRate.Amount <= 0 {
		return nil, ErrRateInvalid
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Property{
		ID:          params.ID,
		Landlord:    params.Landlord,
		Title:       title,
		Description: strings.TrimSpace(params.Description),
		Address:     params.Address,
		MonthlyRate: params.MonthlyRate,
		Bedrooms:    params.Bedrooms,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (p *Property) Publish(now time.Time) error {
	if p.Status == StatusListed {
		return ErrInvalidState
	}
	p.Status = StatusListed
	p.touch(now)
	return nil
}

func (p *Property) Unpublish(now time.Time) error {
	if p.Status != StatusListed {
		return ErrInvalidState
	}
	p.Status = StatusUnlisted
	p.touch(now)
	return nil
}

func (p *Property) UpdateDetails(title, description string, rate money.Money, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	if rate.Amount <= 0 {
		return ErrRateInvalid
	}
	p.Title = title
	p.Description = strings.TrimSpace(description)
	p.MonthlyRate = rate
	p.touch(now)
	return nil
}

func (p *Property) AttachPhoto(url string, now time.Time) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	p.PhotoURLs = append(p.PhotoURLs, url)
	p.touch(now)
}

func (p *Property) OwnedBy(landlord user.ID) bool {
	return p.Landlord == landlord
}

func (p *Property) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	p.UpdatedAt = now.UTC()
}
