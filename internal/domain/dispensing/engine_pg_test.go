package dispensing

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/carehub/hms/internal/domain/patient"
	"github.com/carehub/hms/internal/domain/pharmacy"
	"github.com/carehub/hms/internal/platform/apperr"
	"github.com/carehub/hms/internal/platform/db"
)

// pgEngine returns an engine backed by the migrated database in
// TEST_DATABASE_URL. Tests only assert on rows they created.
func pgEngine(t *testing.T) (*Engine, pharmacy.MedicineRepository, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres test")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, url, db.PoolOptions{MaxConns: 10, MinConns: 1, ApplicationName: "hms-test"})
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := db.NewMigrator(pool, db.EmbeddedMigrations()).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	medicines := pharmacy.NewMedicineRepoPG(pool)
	return NewEngine(medicines, patient.NewVisitRepoPG(pool), db.NewTxManager(pool)), medicines, pool
}

func pgMedicine(t *testing.T, repo pharmacy.MedicineRepository, name string, qty int, expiry time.Time) uuid.UUID {
	t.Helper()
	m := &pharmacy.Medicine{
		MedicineName: name,
		GenericName:  name,
		Category:     "Antibiotic",
		Strength:     "500mg",
		Quantity:     qty,
		Unit:         "Tablets",
		Manufacturer: "Acme",
		ExpiryDate:   expiry,
		Price:        decimal.RequireFromString("12.50"),
		Supplier:     "Acme Supply",
		Location:     "Shelf A",
	}
	if err := repo.Create(context.Background(), m); err != nil {
		t.Fatalf("create medicine: %v", err)
	}
	return m.ID
}

func pgQuantity(t *testing.T, repo pharmacy.MedicineRepository, id uuid.UUID) int {
	t.Helper()
	m, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get medicine: %v", err)
	}
	return m.Quantity
}

func TestPG_AdmitAndDispense(t *testing.T) {
	e, medicines, _ := pgEngine(t)
	ctx := context.Background()
	amox := pgMedicine(t, medicines, "Amoxicillin", 10, time.Now().AddDate(1, 0, 0))

	v, err := e.Admit(ctx, newVisit(), []patient.LineRequest{line(amox, 3)})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	v, err = e.Dispense(ctx, v.ID, []patient.LineRequest{line(amox, 2)})
	if err != nil {
		t.Fatalf("dispense: %v", err)
	}

	if got := pgQuantity(t, medicines, amox); got != 5 {
		t.Errorf("expected 5 left, got %d", got)
	}
	if len(v.Medications) != 2 || v.Medications[0].Quantity != 3 || v.Medications[1].Quantity != 2 {
		t.Fatalf("expected two ordered lines, got %+v", v.Medications)
	}
	if v.Medications[1].Medicine == nil || v.Medications[1].Medicine.MedicineName != "Amoxicillin" {
		t.Error("expected resolved medicine on each line")
	}
}

func TestPG_FailedBatchLeavesNoTrace(t *testing.T) {
	e, medicines, pool := pgEngine(t)
	ctx := context.Background()
	amox := pgMedicine(t, medicines, "Amoxicillin", 10, time.Now().AddDate(1, 0, 0))
	para := pgMedicine(t, medicines, "Paracetamol", 1, time.Now().AddDate(1, 0, 0))

	v := newVisit()
	v.Name = "Rejected " + uuid.NewString()
	_, err := e.Admit(ctx, v, []patient.LineRequest{line(amox, 3), line(para, 2)})
	if apperr.KindOf(err) != apperr.KindInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := pgQuantity(t, medicines, amox); got != 10 {
		t.Errorf("expected amoxicillin untouched, got %d", got)
	}

	var visits int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM visit WHERE name = $1`, v.Name).Scan(&visits); err != nil {
		t.Fatalf("count visits: %v", err)
	}
	if visits != 0 {
		t.Errorf("expected no visit stored, got %d", visits)
	}
}

func TestPG_ConcurrentDispenseNeverOversells(t *testing.T) {
	e, medicines, _ := pgEngine(t)
	ctx := context.Background()
	amox := pgMedicine(t, medicines, "Amoxicillin", 5, time.Now().AddDate(1, 0, 0))

	v, err := e.Admit(ctx, newVisit(), nil)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	errs := make([]error, 2)
	var g errgroup.Group
	for i := range errs {
		i := i
		g.Go(func() error {
			_, errs[i] = e.Dispense(ctx, v.ID, []patient.LineRequest{line(amox, 4)})
			return nil
		})
	}
	_ = g.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.KindOf(err) == apperr.KindInsufficientStock:
			insufficient++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("expected one success and one insufficient, got %d/%d", ok, insufficient)
	}
	if got := pgQuantity(t, medicines, amox); got != 1 {
		t.Errorf("expected 1 left, got %d", got)
	}
}

func TestPG_OppositeOrderBatchesBothCommit(t *testing.T) {
	e, medicines, _ := pgEngine(t)
	ctx := context.Background()
	amox := pgMedicine(t, medicines, "Amoxicillin", 100, time.Now().AddDate(1, 0, 0))
	para := pgMedicine(t, medicines, "Paracetamol", 100, time.Now().AddDate(1, 0, 0))

	v, err := e.Admit(ctx, newVisit(), nil)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	const rounds = 20
	var g errgroup.Group
	for i := 0; i < rounds; i++ {
		batch := []patient.LineRequest{line(amox, 1), line(para, 1)}
		if i%2 == 1 {
			batch = []patient.LineRequest{line(para, 1), line(amox, 1)}
		}
		g.Go(func() error {
			_, err := e.Dispense(ctx, v.ID, batch)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("expected every batch to commit, got %v", err)
	}

	if got := pgQuantity(t, medicines, amox); got != 100-rounds {
		t.Errorf("expected %d amoxicillin left, got %d", 100-rounds, got)
	}
	if got := pgQuantity(t, medicines, para); got != 100-rounds {
		t.Errorf("expected %d paracetamol left, got %d", 100-rounds, got)
	}
}
