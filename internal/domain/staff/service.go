package staff

import (
	"context"

	"github.com/google/uuid"

	"github.com/carehub/hms/pkg/pagination"
)

type Service struct {
	employees EmployeeRepository
}

func NewService(employees EmployeeRepository) *Service {
	return &Service{employees: employees}
}

func (s *Service) CreateEmployee(ctx context.Context, in *EmployeeInput) (*Employee, error) {
	e, err := in.ToEmployee()
	if err != nil {
		return nil, err
	}
	if err := s.employees.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, id uuid.UUID, in *EmployeeInput) (*Employee, error) {
	e, err := in.ToEmployee()
	if err != nil {
		return nil, err
	}
	e.ID = id
	if err := s.employees.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	return s.employees.Delete(ctx, id)
}

func (s *Service) ListEmployees(ctx context.Context, page pagination.Params) ([]*Employee, int, error) {
	return s.employees.List(ctx, page)
}
