package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/hms/internal/platform/apperr"
	"github.com/carehub/hms/internal/platform/db"
)

type visitRepoPG struct{ pool *pgxpool.Pool }

func NewVisitRepoPG(pool *pgxpool.Pool) VisitRepository {
	return &visitRepoPG{pool: pool}
}

func (r *visitRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func errVisitNotFound() error {
	return apperr.NotFound("Patient not found")
}

const visitCols = `id, name, visit_date, visit_time, fees, amount, doctor, treatment,
	received_by, created_at, updated_at`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.Name, &v.Date, &v.Time, &v.Fees, &v.Amount, &v.Doctor,
		&v.Treatment, &v.ReceivedBy, &v.CreatedAt, &v.UpdatedAt)
	v.Medications = []MedicationLine{}
	return &v, err
}

func (r *visitRepoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO visit (id, name, visit_time, fees, amount, doctor, treatment, received_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING visit_date, created_at, updated_at`,
		v.ID, v.Name, v.Time, v.Fees, v.Amount, v.Doctor, v.Treatment, v.ReceivedBy,
	).Scan(&v.Date, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return apperr.Store("insert visit", err)
	}
	if err := r.insertLines(ctx, v.ID, 0, v.Medications); err != nil {
		return err
	}
	if v.Medications == nil {
		v.Medications = []MedicationLine{}
	}
	return nil
}

func (r *visitRepoPG) insertLines(ctx context.Context, visitID uuid.UUID, start int, lines []MedicationLine) error {
	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO visit_medication (id, visit_id, medicine_id, quantity, prescribed_date, position)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			lines[i].ID, visitID, lines[i].MedicineID, lines[i].Quantity, lines[i].PrescribedDate, start+i)
		if err != nil {
			return apperr.Store("insert medication line", err)
		}
	}
	return nil
}

func (r *visitRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM visit WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errVisitNotFound()
	}
	if err != nil {
		return nil, apperr.Store("get visit", err)
	}
	if err := r.loadMedications(ctx, []*Visit{v}); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *visitRepoPG) Update(ctx context.Context, v *Visit) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE visit SET name=$2, visit_time=$3, fees=$4, amount=$5, doctor=$6,
			treatment=$7, received_by=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING visit_date, created_at, updated_at`,
		v.ID, v.Name, v.Time, v.Fees, v.Amount, v.Doctor, v.Treatment, v.ReceivedBy,
	).Scan(&v.Date, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return errVisitNotFound()
	}
	if err != nil {
		return apperr.Store("update visit", err)
	}
	return nil
}

func (r *visitRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM visit WHERE id = $1`, id)
	if err != nil {
		return apperr.Store("delete visit", err)
	}
	if tag.RowsAffected() == 0 {
		return errVisitNotFound()
	}
	return nil
}

func (r *visitRepoPG) List(ctx context.Context, q ListQuery) ([]*Visit, int, error) {
	whereClause := ""
	var args []interface{}
	if q.UnpaidOnly {
		whereClause = " WHERE fees = $1"
		args = append(args, FeesUnpaid)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visit`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Store("count visits", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+visitCols+` FROM visit`+whereClause+` ORDER BY created_at DESC, id`+q.Page.SQL(), args...)
	if err != nil {
		return nil, 0, apperr.Store("list visits", err)
	}
	defer rows.Close()

	visits := make([]*Visit, 0)
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, apperr.Store("scan visit", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Store("iterate visits", err)
	}

	if err := r.loadMedications(ctx, visits); err != nil {
		return nil, 0, err
	}
	return visits, total, nil
}

// AppendMedications locks the visit row so concurrent appends get distinct
// positions.
func (r *visitRepoPG) AppendMedications(ctx context.Context, visitID uuid.UUID, lines []MedicationLine) error {
	var next int
	err := r.conn(ctx).QueryRow(ctx, `
		WITH v AS (
			UPDATE visit SET updated_at = NOW() WHERE id = $1 RETURNING id
		)
		SELECT COALESCE((SELECT MAX(position) + 1 FROM visit_medication WHERE visit_id = $1), 0)
		FROM v`, visitID).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return errVisitNotFound()
	}
	if err != nil {
		return apperr.Store("lock visit", err)
	}
	return r.insertLines(ctx, visitID, next, lines)
}

func (r *visitRepoPG) loadMedications(ctx context.Context, visits []*Visit) error {
	if len(visits) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(visits))
	for i, v := range visits {
		ids[i] = v.ID
	}
	byVisit, err := r.medicationsFor(ctx, ids)
	if err != nil {
		return err
	}
	for _, v := range visits {
		if lines := byVisit[v.ID]; lines != nil {
			v.Medications = lines
		}
	}
	return nil
}

func (r *visitRepoPG) medicationsFor(ctx context.Context, visitIDs []uuid.UUID) (map[uuid.UUID][]MedicationLine, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, visit_id, medicine_id, quantity, prescribed_date
		FROM visit_medication
		WHERE visit_id = ANY($1)
		ORDER BY visit_id, position`, visitIDs)
	if err != nil {
		return nil, apperr.Store("list medication lines", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]MedicationLine, len(visitIDs))
	for rows.Next() {
		var l MedicationLine
		var visitID uuid.UUID
		if err := rows.Scan(&l.ID, &visitID, &l.MedicineID, &l.Quantity, &l.PrescribedDate); err != nil {
			return nil, apperr.Store("scan medication line", err)
		}
		out[visitID] = append(out[visitID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("iterate medication lines", err)
	}
	return out, nil
}
