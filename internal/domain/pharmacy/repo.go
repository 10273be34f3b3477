package pharmacy

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/hms/pkg/pagination"
)

type SortOrder int

const (
	SortNewest SortOrder = iota
	SortQuantityAsc
	SortExpiryAsc
)

// Query selects catalog rows. Zero-valued filters are ignored.
type Query struct {
	Category      string
	QuantityBelow int
	ExpiresBy     time.Time
	Sort          SortOrder
	Page          pagination.Params
}

type MedicineRepository interface {
	Create(ctx context.Context, m *Medicine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error)
	// GetMany returns the medicines that still exist among ids.
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Medicine, error)
	Update(ctx context.Context, m *Medicine) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q Query) ([]*Medicine, int, error)
	// ConditionalDecrement subtracts qty only while the row holds at least qty
	// units and has not expired as of asOf. It reports whether a row changed.
	ConditionalDecrement(ctx context.Context, id uuid.UUID, qty int, asOf time.Time) (bool, error)
}
