package staff

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/hms/internal/platform/apperr"
	"github.com/carehub/hms/internal/platform/db"
	"github.com/carehub/hms/pkg/pagination"
)

type employeeRepoPG struct{ pool *pgxpool.Pool }

func NewEmployeeRepoPG(pool *pgxpool.Pool) EmployeeRepository {
	return &employeeRepoPG{pool: pool}
}

func (r *employeeRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *employeeRepoPG) Create(ctx context.Context, e *Employee) error {
	e.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO employee (id, name, address, phone_number, gender, date_of_joining)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		e.ID, e.Name, e.Address, e.PhoneNumber, e.Gender, e.DateOfJoining,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return apperr.Store("insert employee", err)
	}
	return nil
}

func (r *employeeRepoPG) Update(ctx context.Context, e *Employee) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE employee SET name=$2, address=$3, phone_number=$4, gender=$5,
			date_of_joining=$6, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		e.ID, e.Name, e.Address, e.PhoneNumber, e.Gender, e.DateOfJoining,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Employee not found")
	}
	if err != nil {
		return apperr.Store("update employee", err)
	}
	return nil
}

func (r *employeeRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM employee WHERE id = $1`, id)
	if err != nil {
		return apperr.Store("delete employee", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Employee not found")
	}
	return nil
}

func (r *employeeRepoPG) List(ctx context.Context, page pagination.Params) ([]*Employee, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM employee`).Scan(&total); err != nil {
		return nil, 0, apperr.Store("count employees", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, name, address, phone_number, gender, date_of_joining, created_at, updated_at
		FROM employee ORDER BY created_at DESC, id`+page.SQL())
	if err != nil {
		return nil, 0, apperr.Store("list employees", err)
	}
	defer rows.Close()

	items := make([]*Employee, 0)
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Address, &e.PhoneNumber, &e.Gender,
			&e.DateOfJoining, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, apperr.Store("scan employee", err)
		}
		items = append(items, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Store("iterate employees", err)
	}
	return items, total, nil
}
