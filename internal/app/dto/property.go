package dto

import (
	"time"

	domainproperty "rentverse/internal/domain/property"
)

type AddressDTO struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type PropertyView struct {
	ID          string     `json:"id"`
	LandlordID  string     `json:"landlord_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Address     AddressDTO `json:"address"`
	MonthlyRate MoneyDTO   `json:"monthly_rate"`
	Bedrooms    int        `json:"bedrooms"`
	Status      string     `json:"status"`
	PhotoURLs   []string   `json:"photo_urls,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type PropertyCollection struct {
	Items []PropertyView `json:"items"`
}

func MapPropertyView(prop *domainproperty.Property) PropertyView {
	if prop == nil {
		return PropertyView{}
	}
	return PropertyView{
		ID:          string(prop.ID),
		LandlordID:  string(prop.Landlord),
		Title:       prop.Title,
		Description: prop.Description,
		Address: AddressDTO{
			Line1:   prop.Address.Line1,
			Line2:   prop.Address.Line2,
			City:    prop.Address.City,
			Country: prop.Address.Country,
		},
		MonthlyRate: MapMoney(prop.MonthlyRate),
		Bedrooms:    prop.Bedrooms,
		Status:      string(prop.Status),
		PhotoURLs:   prop.PhotoURLs,
		CreatedAt:   prop.CreatedAt,
		UpdatedAt:   prop.UpdatedAt,
	}
}

func MapPropertyCollection(items []*domainproperty.Property) PropertyCollection {
	views := make([]PropertyView, 0, len(items))
	for _, prop := range items {
		views = append(views, MapPropertyView(prop))
	}
	return PropertyCollection{Items: views}
}
