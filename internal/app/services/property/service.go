package property

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"rentverse/internal/app/dto"
	"rentverse/internal/app/support"
	"rentverse/internal/app/uow"
	domainproperty "rentverse/internal/domain/property"
	"rentverse/internal/domain/shared/money"
	domainuser "rentverse/internal/domain/user"
	"rentverse/internal/infra/cache"
	"rentverse/internal/infra/storage/s3"
)

var validate = validator.New()

const publishedCacheKey = "properties.published"

type Service struct {
	UoWFactory uow.UoWFactory
	Uploader   s3.Uploader
	// Cache holds the published-listings read model; any write to a
	// property invalidates it.
	Cache  *cache.Cache[dto.PropertyCollection]
	Logger *slog.Logger
}

type CreateParams struct {
	LandlordID  string `validate:"required"`
	Title       string `validate:"required"`
	Description string
	Line1       string `validate:"required"`
	Line2       string
	City        string `validate:"required"`
	Country     string `validate:"required"`
	MonthlyRate int64  `validate:"required,gt=0"`
	Currency    string `validate:"required,len=3"`
	Bedrooms    int    `validate:"gte=0"`
}

type UpdateParams struct {
	PropertyID  string `validate:"required"`
	LandlordID  string `validate:"required"`
	Title       string `validate:"required"`
	Description string
	MonthlyRate int64  `validate:"required,gt=0"`
	Currency    string `validate:"required,len=3"`
}

type PhotoParams struct {
	PropertyID  string
	LandlordID  string
	FileName    string
	ContentType string
	Reader      io.Reader
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*dto.PropertyView, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := validate.Struct(params); err != nil {
		return nil, err
	}
	rate, err := money.New(params.MonthlyRate, params.Currency)
	if err != nil {
		return nil, err
	}
	prop, err := domainproperty.NewProperty(domainproperty.CreateParams{
		ID:          domainproperty.PropertyID(uuid.NewString()),
		Landlord:    domainuser.ID(params.LandlordID),
		Title:       params.Title,
		Description: params.Description,
		Address: domainproperty.Address{
			Line1:   strings.TrimSpace(params.Line1),
			Line2:   strings.TrimSpace(params.Line2),
			City:    strings.TrimSpace(params.City),
			Country: strings.TrimSpace(params.Country),
		},
		MonthlyRate: rate,
		Bedrooms:    params.Bedrooms,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, prop); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("property created", "property_id", prop.ID, "landlord_id", prop.Landlord)
	}
	view := dto.MapPropertyView(prop)
	return &view, nil
}

func (s *Service) Update(ctx context.Context, params UpdateParams) (*dto.PropertyView, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := validate.Struct(params); err != nil {
		return nil, err
	}
	rate, err := money.New(params.MonthlyRate, params.Currency)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, params.PropertyID, params.LandlordID, func(prop *domainproperty.Property) error {
		return prop.UpdateDetails(params.Title, params.Description, rate, time.Now())
	})
}

func (s *Service) Publish(ctx context.Context, propertyID, landlordID string) (*dto.PropertyView, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, propertyID, landlordID, func(prop *domainproperty.Property) error {
		return prop.Publish(time.Now())
	})
}

func (s *Service) Unpublish(ctx context.Context, propertyID, landlordID string) (*dto.PropertyView, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, propertyID, landlordID, func(prop *domainproperty.Property) error {
		return prop.Unpublish(time.Now())
	})
}

// UploadPhoto stores the image first and attaches the resulting public
// URL; an upload failure leaves the property untouched.
func (s *Service) UploadPhoto(ctx context.Context, params PhotoParams) (*dto.PropertyView, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if s.Uploader == nil {
		return nil, errors.New("property: photo uploader unavailable")
	}
	if params.Reader == nil {
		return nil, errors.New("property: photo reader is required")
	}
	key := fmt.Sprintf("properties/%s/%d-%s", params.PropertyID, time.Now().UnixNano(), strings.TrimSpace(params.FileName))
	publicURL, err := s.Uploader.Upload(ctx, key, params.Reader, params.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	return s.mutate(ctx, params.PropertyID, params.LandlordID, func(prop *domainproperty.Property) error {
		prop.AttachPhoto(publicURL, time.Now())
		return nil
	})
}

func (s *Service) Get(ctx context.Context, propertyID string) (*dto.PropertyView, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, s.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	prop, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(propertyID))
	if err != nil {
		return nil, err
	}
	view := dto.MapPropertyView(prop)
	return &view, nil
}

func (s *Service) ListForLandlord(ctx context.Context, landlordID string) (*dto.PropertyCollection, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, s.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	props, err := unit.Properties().ListByLandlord(ctx, domainuser.ID(landlordID))
	if err != nil {
		return nil, err
	}
	collection := dto.MapPropertyCollection(props)
	return &collection, nil
}

func (s *Service) ListPublished(ctx context.Context, limit int) (*dto.PropertyCollection, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	cacheKey := fmt.Sprintf("%s:%d", publishedCacheKey, limit)
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(cacheKey); ok {
			return &cached, nil
		}
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, s.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	props, err := unit.Properties().ListPublished(ctx, limit)
	if err != nil {
		return nil, err
	}
	collection := dto.MapPropertyCollection(props)
	if s.Cache != nil {
		s.Cache.Set(cacheKey, collection)
	}
	return &collection, nil
}

func (s *Service) mutate(ctx context.Context, propertyID, landlordID string, apply func(*domainproperty.Property) error) (*dto.PropertyView, error) {
	unit, ctx, commit, cleanup, err := support.BeginWriteUnit(ctx, s.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	prop, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(propertyID))
	if err != nil {
		return nil, err
	}
	if !prop.OwnedBy(domainuser.ID(landlordID)) {
		return nil, domainproperty.ErrNotOwned
	}
	if err := apply(prop); err != nil {
		return nil, err
	}
	if err := unit.Properties().Save(ctx, prop); err != nil {
		return nil, err
	}
	if err := commit(ctx); err != nil {
		return nil, err
	}
	s.invalidateCache()
	view := dto.MapPropertyView(prop)
	return &view, nil
}

func (s *Service) save(ctx context.Context, prop *domainproperty.Property) error {
	unit, ctx, commit, cleanup, err := support.BeginWriteUnit(ctx, s.UoWFactory)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	if err := unit.Properties().Save(ctx, prop); err != nil {
		return err
	}
	if err := commit(ctx); err != nil {
		return err
	}
	s.invalidateCache()
	return nil
}

func (s *Service) invalidateCache() {
	if s.Cache != nil {
		s.Cache.InvalidateAll()
	}
}

func (s *Service) ensureDependencies() error {
	if s.UoWFactory == nil {
		return errors.New("property: unit of work factory required")
	}
	return nil
}
