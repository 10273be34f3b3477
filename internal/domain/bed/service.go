package bed

import (
	"context"
	"strings"

	"github.com/carehub/hms/internal/platform/apperr"
)

type Service struct {
	beds  Repository
	count int
}

func NewService(beds Repository, count int) *Service {
	if count <= 0 {
		count = DefaultCount
	}
	return &Service{beds: beds, count: count}
}

// Initialize creates the ward's beds on first use. It reports false when beds
// already exist.
func (s *Service) Initialize(ctx context.Context) (bool, error) {
	return s.beds.InitializeIfEmpty(ctx, s.count)
}

func (s *Service) List(ctx context.Context) ([]*Bed, error) {
	return s.beds.List(ctx, Filter{})
}

func (s *Service) ListAvailable(ctx context.Context) ([]*Bed, error) {
	booked := false
	return s.beds.List(ctx, Filter{Booked: &booked})
}

func (s *Service) ListBooked(ctx context.Context) ([]*Bed, error) {
	booked := true
	return s.beds.List(ctx, Filter{Booked: &booked})
}

func (s *Service) Book(ctx context.Context, id int, patientName, time string) (*Bed, error) {
	patientName = strings.TrimSpace(patientName)
	if patientName == "" {
		return nil, apperr.InvalidArgument("patientName is required")
	}
	return s.beds.Book(ctx, id, patientName, time)
}

func (s *Service) Unbook(ctx context.Context, id int) (*Bed, error) {
	return s.beds.Unbook(ctx, id)
}

// Update overwrites a bed's booking state. A bed that is not booked never
// keeps a patient name or time.
func (s *Service) Update(ctx context.Context, b *Bed) (*Bed, error) {
	if !b.IsBooked {
		b.PatientName, b.Time = "", ""
	}
	if err := s.beds.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.beds.Stats(ctx)
}
