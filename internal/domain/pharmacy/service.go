package pharmacy

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/hms/internal/platform/apperr"
	"github.com/carehub/hms/pkg/pagination"
)

const (
	DefaultLowStockThreshold = 50
	DefaultExpiryWindow      = 30 * 24 * time.Hour
)

type Service struct {
	medicines         MedicineRepository
	lowStockThreshold int
	expiryWindow      time.Duration
	now               func() time.Time
}

func NewService(medicines MedicineRepository, lowStockThreshold int, expiryWindow time.Duration) *Service {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	if expiryWindow < 0 {
		expiryWindow = DefaultExpiryWindow
	}
	return &Service{
		medicines:         medicines,
		lowStockThreshold: lowStockThreshold,
		expiryWindow:      expiryWindow,
		now:               time.Now,
	}
}

func (s *Service) CreateMedicine(ctx context.Context, in *MedicineInput) (*Medicine, error) {
	m, err := in.ToMedicine()
	if err != nil {
		return nil, apperr.InvalidArgument("%s", err.Error())
	}
	if err := s.medicines.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return s.medicines.GetByID(ctx, id)
}

// UpdateMedicine replaces every editable field of the medicine.
func (s *Service) UpdateMedicine(ctx context.Context, id uuid.UUID, in *MedicineInput) (*Medicine, error) {
	m, err := in.ToMedicine()
	if err != nil {
		return nil, apperr.InvalidArgument("%s", err.Error())
	}
	m.ID = id
	if err := s.medicines.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMedicine removes a catalog entry. Medication lines that reference it
// are left untouched.
func (s *Service) DeleteMedicine(ctx context.Context, id uuid.UUID) error {
	return s.medicines.Delete(ctx, id)
}

func (s *Service) ListMedicines(ctx context.Context, page pagination.Params) ([]*Medicine, int, error) {
	return s.medicines.List(ctx, Query{Sort: SortNewest, Page: page})
}

func (s *Service) ListByCategory(ctx context.Context, category string, page pagination.Params) ([]*Medicine, int, error) {
	if category == "" {
		return nil, 0, apperr.InvalidArgument("category is required")
	}
	return s.medicines.List(ctx, Query{Category: category, Sort: SortNewest, Page: page})
}

// ListLowStock returns medicines with fewer units than the configured threshold.
func (s *Service) ListLowStock(ctx context.Context, page pagination.Params) ([]*Medicine, int, error) {
	return s.medicines.List(ctx, Query{QuantityBelow: s.lowStockThreshold, Sort: SortQuantityAsc, Page: page})
}

// ListExpiring returns medicines expiring within the configured window,
// including those already expired.
func (s *Service) ListExpiring(ctx context.Context, page pagination.Params) ([]*Medicine, int, error) {
	return s.medicines.List(ctx, Query{ExpiresBy: s.now().Add(s.expiryWindow), Sort: SortExpiryAsc, Page: page})
}
