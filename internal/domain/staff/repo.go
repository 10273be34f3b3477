package staff

import (
	"context"

	"github.com/google/uuid"

	"github.com/carehub/hms/pkg/pagination"
)

type EmployeeRepository interface {
	Create(ctx context.Context, e *Employee) error
	Update(ctx context.Context, e *Employee) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns employees newest first.
	List(ctx context.Context, page pagination.Params) ([]*Employee, int, error)
}
