package pharmacy

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carehub/hms/pkg/clocktime"
)

// Medicine is one stocked inventory item. Quantity is the quantity on hand.
type Medicine struct {
	ID           uuid.UUID       `json:"id"`
	MedicineName string          `json:"medicineName"`
	GenericName  string          `json:"genericName"`
	Category     string          `json:"category"`
	Strength     string          `json:"strength"`
	Quantity     int             `json:"quantity"`
	Unit         string          `json:"unit"`
	Manufacturer string          `json:"manufacturer"`
	ExpiryDate   time.Time       `json:"expiryDate"`
	Price        decimal.Decimal `json:"price"`
	Supplier     string          `json:"supplier"`
	Location     string          `json:"location"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ExpiredAt reports whether the medicine's expiry date lies before t.
func (m *Medicine) ExpiredAt(t time.Time) bool {
	return m.ExpiryDate.Before(t)
}

var Categories = []string{
	"Pain Relief", "Antibiotic", "Antiviral", "Antifungal", "Cardiovascular",
	"Diabetes", "Respiratory", "Gastrointestinal", "Vitamins", "Other",
}

var Units = []string{"Tablets", "Capsules", "Bottles", "Vials", "Tubes", "Packs", "Units"}

var (
	validCategories = toSet(Categories)
	validUnits      = toSet(Units)
)

func toSet(vals []string) map[string]bool {
	s := make(map[string]bool, len(vals))
	for _, v := range vals {
		s[v] = true
	}
	return s
}

// MedicineInput is the create/update payload. Pointers separate "missing"
// from zero for the numeric fields.
type MedicineInput struct {
	MedicineName string           `json:"medicineName"`
	GenericName  string           `json:"genericName"`
	Category     string           `json:"category"`
	Strength     string           `json:"strength"`
	Quantity     *int             `json:"quantity"`
	Unit         string           `json:"unit"`
	Manufacturer string           `json:"manufacturer"`
	ExpiryDate   string           `json:"expiryDate"`
	Price        *decimal.Decimal `json:"price"`
	Supplier     string           `json:"supplier"`
	Location     string           `json:"location"`
}

// ToMedicine validates the payload and builds a Medicine from it.
func (in *MedicineInput) ToMedicine() (*Medicine, error) {
	m := &Medicine{
		MedicineName: strings.TrimSpace(in.MedicineName),
		GenericName:  strings.TrimSpace(in.GenericName),
		Category:     in.Category,
		Strength:     in.Strength,
		Unit:         in.Unit,
		Manufacturer: in.Manufacturer,
		Supplier:     in.Supplier,
		Location:     in.Location,
	}

	required := []struct {
		name, value string
	}{
		{"medicineName", m.MedicineName},
		{"genericName", m.GenericName},
		{"category", m.Category},
		{"strength", m.Strength},
		{"unit", m.Unit},
		{"manufacturer", m.Manufacturer},
		{"expiryDate", in.ExpiryDate},
		{"supplier", m.Supplier},
		{"location", m.Location},
	}
	for _, f := range required {
		if f.value == "" {
			return nil, fmt.Errorf("%s is required", f.name)
		}
	}

	if !validCategories[m.Category] {
		return nil, fmt.Errorf("invalid category: %s", m.Category)
	}
	if !validUnits[m.Unit] {
		return nil, fmt.Errorf("invalid unit: %s", m.Unit)
	}

	if in.Quantity == nil {
		return nil, fmt.Errorf("quantity is required")
	}
	if *in.Quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}
	m.Quantity = *in.Quantity

	if in.Price == nil {
		return nil, fmt.Errorf("price is required")
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative")
	}
	m.Price = *in.Price

	expiry, err := clocktime.ParseDate(in.ExpiryDate)
	if err != nil {
		return nil, err
	}
	m.ExpiryDate = expiry

	return m, nil
}
