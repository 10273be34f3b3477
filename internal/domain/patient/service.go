package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/carehub/hms/internal/platform/apperr"
	"github.com/carehub/hms/pkg/pagination"
)

type Service struct {
	visits    VisitRepository
	medicines MedicineResolver
}

func NewService(visits VisitRepository, medicines MedicineResolver) *Service {
	return &Service{visits: visits, medicines: medicines}
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := s.visits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ResolveMedications(ctx, s.medicines, v); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateVisit rewrites the visit fields and returns the stored visit with its
// medication history.
func (s *Service) UpdateVisit(ctx context.Context, id uuid.UUID, v *Visit) (*Visit, error) {
	if err := v.Normalize(); err != nil {
		return nil, err
	}
	v.ID = id
	if err := s.visits.Update(ctx, v); err != nil {
		return nil, err
	}
	return s.GetVisit(ctx, id)
}

func (s *Service) DeleteVisit(ctx context.Context, id uuid.UUID) error {
	return s.visits.Delete(ctx, id)
}

func (s *Service) ListVisits(ctx context.Context, page pagination.Params) ([]*Visit, int, error) {
	return s.list(ctx, ListQuery{Page: page})
}

func (s *Service) ListUnpaid(ctx context.Context, page pagination.Params) ([]*Visit, int, error) {
	return s.list(ctx, ListQuery{UnpaidOnly: true, Page: page})
}

func (s *Service) list(ctx context.Context, q ListQuery) ([]*Visit, int, error) {
	visits, total, err := s.visits.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	if err := ResolveMedications(ctx, s.medicines, visits...); err != nil {
		return nil, 0, err
	}
	return visits, total, nil
}

// ResolveMedications attaches catalog entries to every medication line of
// visits. Lines whose medicine no longer exists keep only their id.
func ResolveMedications(ctx context.Context, r MedicineResolver, visits ...*Visit) error {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, v := range visits {
		for _, l := range v.Medications {
			if !seen[l.MedicineID] {
				seen[l.MedicineID] = true
				ids = append(ids, l.MedicineID)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	found, err := r.GetMany(ctx, ids)
	if err != nil {
		return apperr.AsStore("resolve medicines", err)
	}
	for _, v := range visits {
		for i := range v.Medications {
			v.Medications[i].Medicine = found[v.Medications[i].MedicineID]
		}
	}
	return nil
}
