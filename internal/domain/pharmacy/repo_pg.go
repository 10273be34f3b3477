package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/hms/internal/platform/apperr"
	"github.com/carehub/hms/internal/platform/db"
)

type medicineRepoPG struct{ pool *pgxpool.Pool }

func NewMedicineRepoPG(pool *pgxpool.Pool) MedicineRepository {
	return &medicineRepoPG{pool: pool}
}

func (r *medicineRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const medicineCols = `id, medicine_name, generic_name, category, strength, quantity, unit,
	manufacturer, expiry_date, price, supplier, location, created_at, updated_at`

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.MedicineName, &m.GenericName, &m.Category, &m.Strength,
		&m.Quantity, &m.Unit, &m.Manufacturer, &m.ExpiryDate, &m.Price, &m.Supplier,
		&m.Location, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *medicineRepoPG) Create(ctx context.Context, m *Medicine) error {
	m.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medicine (id, medicine_name, generic_name, category, strength, quantity,
			unit, manufacturer, expiry_date, price, supplier, location)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		m.ID, m.MedicineName, m.GenericName, m.Category, m.Strength, m.Quantity,
		m.Unit, m.Manufacturer, m.ExpiryDate, m.Price, m.Supplier, m.Location,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return apperr.Store("insert medicine", err)
	}
	return nil
}

func (r *medicineRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	m, err := scanMedicine(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medicineCols+` FROM medicine WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Medicine not found")
	}
	if err != nil {
		return nil, apperr.Store("get medicine", err)
	}
	return m, nil
}

func (r *medicineRepoPG) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Medicine, error) {
	out := make(map[uuid.UUID]*Medicine, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medicineCols+` FROM medicine WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, apperr.Store("get medicines", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, apperr.Store("scan medicine", err)
		}
		out[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("iterate medicines", err)
	}
	return out, nil
}

func (r *medicineRepoPG) Update(ctx context.Context, m *Medicine) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE medicine SET medicine_name=$2, generic_name=$3, category=$4, strength=$5,
			quantity=$6, unit=$7, manufacturer=$8, expiry_date=$9, price=$10, supplier=$11,
			location=$12, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		m.ID, m.MedicineName, m.GenericName, m.Category, m.Strength, m.Quantity,
		m.Unit, m.Manufacturer, m.ExpiryDate, m.Price, m.Supplier, m.Location,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Medicine not found")
	}
	if err != nil {
		return apperr.Store("update medicine", err)
	}
	return nil
}

func (r *medicineRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medicine WHERE id = $1`, id)
	if err != nil {
		return apperr.Store("delete medicine", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Medicine not found")
	}
	return nil
}

func (r *medicineRepoPG) List(ctx context.Context, q Query) ([]*Medicine, int, error) {
	var where []string
	var args []interface{}
	idx := 1

	if q.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", idx))
		args = append(args, q.Category)
		idx++
	}
	if q.QuantityBelow > 0 {
		where = append(where, fmt.Sprintf("quantity < $%d", idx))
		args = append(args, q.QuantityBelow)
		idx++
	}
	if !q.ExpiresBy.IsZero() {
		where = append(where, fmt.Sprintf("expiry_date <= $%d", idx))
		args = append(args, q.ExpiresBy)
		idx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medicine`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Store("count medicines", err)
	}

	orderBy := " ORDER BY created_at DESC, id"
	switch q.Sort {
	case SortQuantityAsc:
		orderBy = " ORDER BY quantity ASC, id"
	case SortExpiryAsc:
		orderBy = " ORDER BY expiry_date ASC, id"
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+medicineCols+` FROM medicine`+whereClause+orderBy+q.Page.SQL(), args...)
	if err != nil {
		return nil, 0, apperr.Store("list medicines", err)
	}
	defer rows.Close()

	items := make([]*Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, 0, apperr.Store("scan medicine", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Store("iterate medicines", err)
	}
	return items, total, nil
}

func (r *medicineRepoPG) ConditionalDecrement(ctx context.Context, id uuid.UUID, qty int, asOf time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medicine SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2 AND expiry_date >= $3`,
		id, qty, asOf)
	if err != nil {
		return false, apperr.Store("decrement medicine stock", err)
	}
	return tag.RowsAffected() == 1, nil
}
