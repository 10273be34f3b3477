package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/carehub/hms/internal/domain/pharmacy"
	"github.com/carehub/hms/pkg/pagination"
)

type ListQuery struct {
	UnpaidOnly bool
	Page       pagination.Params
}

type VisitRepository interface {
	// Create stores the visit together with its initial medication lines.
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	// Update rewrites the visit fields. Medication lines are untouched.
	Update(ctx context.Context, v *Visit) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns visits newest first with their medication lines.
	List(ctx context.Context, q ListQuery) ([]*Visit, int, error)
	AppendMedications(ctx context.Context, visitID uuid.UUID, lines []MedicationLine) error
}

// MedicineResolver looks up catalog entries for medication lines.
type MedicineResolver interface {
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*pharmacy.Medicine, error)
}

// Dispenser moves stock and records it on a visit in one step.
type Dispenser interface {
	Admit(ctx context.Context, v *Visit, lines []LineRequest) (*Visit, error)
	Dispense(ctx context.Context, visitID uuid.UUID, lines []LineRequest) (*Visit, error)
}
