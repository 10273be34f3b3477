package bed

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/hms/internal/platform/apperr"
	"github.com/carehub/hms/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const bedCols = `id, is_booked, patient_name, booked_time, created_at, updated_at`

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.IsBooked, &b.PatientName, &b.Time, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *repoPG) InitializeIfEmpty(ctx context.Context, count int) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bed (id)
		SELECT g FROM generate_series(1, $1) AS g
		WHERE NOT EXISTS (SELECT 1 FROM bed)
		ON CONFLICT (id) DO NOTHING`, count)
	if err != nil {
		return false, apperr.Store("initialize beds", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Bed, error) {
	query := `SELECT ` + bedCols + ` FROM bed`
	var args []interface{}
	if f.Booked != nil {
		query += ` WHERE is_booked = $1`
		args = append(args, *f.Booked)
	}
	query += ` ORDER BY id`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store("list beds", err)
	}
	defer rows.Close()

	beds := make([]*Bed, 0)
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, apperr.Store("scan bed", err)
		}
		beds = append(beds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("iterate beds", err)
	}
	return beds, nil
}

func (r *repoPG) Book(ctx context.Context, id int, patientName, time string) (*Bed, error) {
	b, err := scanBed(r.conn(ctx).QueryRow(ctx, `
		UPDATE bed SET is_booked = TRUE, patient_name = $2, booked_time = $3, updated_at = NOW()
		WHERE id = $1 AND NOT is_booked
		RETURNING `+bedCols, id, patientName, time))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Bed not found or already booked")
	}
	if err != nil {
		return nil, apperr.Store("book bed", err)
	}
	return b, nil
}

func (r *repoPG) Unbook(ctx context.Context, id int) (*Bed, error) {
	b, err := scanBed(r.conn(ctx).QueryRow(ctx, `
		UPDATE bed SET is_booked = FALSE, patient_name = '', booked_time = '', updated_at = NOW()
		WHERE id = $1 AND is_booked
		RETURNING `+bedCols, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Bed not found or not booked")
	}
	if err != nil {
		return nil, apperr.Store("unbook bed", err)
	}
	return b, nil
}

func (r *repoPG) Update(ctx context.Context, b *Bed) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE bed SET is_booked = $2, patient_name = $3, booked_time = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		b.ID, b.IsBooked, b.PatientName, b.Time,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Bed not found")
	}
	if err != nil {
		return apperr.Store("update bed", err)
	}
	return nil
}

func (r *repoPG) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE NOT is_booked),
			COUNT(*) FILTER (WHERE is_booked)
		FROM bed`).Scan(&s.Total, &s.Available, &s.Booked)
	if err != nil {
		return Stats{}, apperr.Store("bed stats", err)
	}
	return s, nil
}
