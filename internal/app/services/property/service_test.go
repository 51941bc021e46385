package property

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rentverse/internal/app/dto"
	domainproperty "rentverse/internal/domain/property"
	"rentverse/internal/infra/cache"
	gormdb "rentverse/internal/infra/db/gorm"
)

type fakeUploader struct {
	keys []string
}

func (f *fakeUploader) Upload(_ context.Context, key string, _ io.Reader, _ string) (string, error) {
	f.keys = append(f.keys, key)
	return "https://files.test/" + key, nil
}

func setupPropertyTest(t *testing.T) (*Service, *fakeUploader) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gormdb.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	uploader := &fakeUploader{}
	svc := &Service{
		UoWFactory: gormdb.Factory{DB: db},
		Uploader:   uploader,
		Cache:      cache.New[dto.PropertyCollection](time.Minute),
	}
	return svc, uploader
}

func createParams(landlordID string) CreateParams {
	return CreateParams{
		LandlordID:  landlordID,
		Title:       "Harbour Loft",
		Description: "Two rooms over the water",
		Line1:       "1 Pier Rd",
		City:        "Rotterdam",
		Country:     "NL",
		MonthlyRate: 95000,
		Currency:    "usd",
		Bedrooms:    2,
	}
}

func TestCreateStartsAsDraft(t *testing.T) {
	svc, _ := setupPropertyTest(t)
	view, err := svc.Create(context.Background(), createParams("landlord-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if view.Status != string(domainproperty.StatusDraft) {
		t.Fatalf("expected DRAFT got %s", view.Status)
	}
	if view.MonthlyRate.Currency != "USD" {
		t.Fatalf("expected normalized currency got %s", view.MonthlyRate.Currency)
	}
}

func TestPublishedCatalogTracksStatus(t *testing.T) {
	svc, _ := setupPropertyTest(t)
	ctx := context.Background()
	view, err := svc.Create(ctx, createParams("landlord-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	catalog, err := svc.ListPublished(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(catalog.Items) != 0 {
		t.Fatalf("draft must not be listed, got %d items", len(catalog.Items))
	}

	if _, err := svc.Publish(ctx, view.ID, "landlord-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	catalog, err = svc.ListPublished(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(catalog.Items) != 1 || catalog.Items[0].ID != view.ID {
		t.Fatalf("published property missing from catalog")
	}

	// The catalog is cached; unpublishing must invalidate it.
	if _, err := svc.Unpublish(ctx, view.ID, "landlord-1"); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	catalog, err = svc.ListPublished(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(catalog.Items) != 0 {
		t.Fatalf("unpublished property still listed")
	}
}

func TestMutationsRequireOwnership(t *testing.T) {
	svc, _ := setupPropertyTest(t)
	ctx := context.Background()
	view, err := svc.Create(ctx, createParams("landlord-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Publish(ctx, view.ID, "someone-else"); !errors.Is(err, domainproperty.ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned got %v", err)
	}
}

func TestUploadPhotoAttachesURL(t *testing.T) {
	svc, uploader := setupPropertyTest(t)
	ctx := context.Background()
	view, err := svc.Create(ctx, createParams("landlord-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := svc.UploadPhoto(ctx, PhotoParams{
		PropertyID:  view.ID,
		LandlordID:  "landlord-1",
		FileName:    "front.jpg",
		ContentType: "image/jpeg",
		Reader:      strings.NewReader("jpeg-bytes"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(updated.PhotoURLs) != 1 || !strings.HasPrefix(updated.PhotoURLs[0], "https://files.test/properties/") {
		t.Fatalf("unexpected photo urls %v", updated.PhotoURLs)
	}
	if len(uploader.keys) != 1 || !strings.HasSuffix(uploader.keys[0], "-front.jpg") {
		t.Fatalf("unexpected storage keys %v", uploader.keys)
	}
}

func TestListForLandlord(t *testing.T) {
	svc, _ := setupPropertyTest(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, createParams("landlord-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	other := createParams("landlord-2")
	other.Title = "City Flat"
	if _, err := svc.Create(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}
	mine, err := svc.ListForLandlord(ctx, "landlord-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine.Items) != 1 || mine.Items[0].Title != "Harbour Loft" {
		t.Fatalf("unexpected landlord listing %+v", mine.Items)
	}
}
