// Package dispensing moves medicine stock onto patient visits. A request is
// validated against the catalog, then committed in one store transaction
// using conditional decrements, so concurrent requests can never drive a
// medicine's quantity below zero.
package dispensing

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carehub/hms/internal/domain/patient"
	"github.com/carehub/hms/internal/domain/pharmacy"
	"github.com/carehub/hms/internal/platform/apperr"
)

const (
	OpAdmit    = "admit"
	OpDispense = "dispense"

	OutcomeSuccess = "success"

	spanName = "dispensing.reserveAndDispense"
)

// Inventory is the slice of the medicine catalog the engine needs.
type Inventory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*pharmacy.Medicine, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*pharmacy.Medicine, error)
	ConditionalDecrement(ctx context.Context, id uuid.UUID, qty int, asOf time.Time) (bool, error)
}

// Visits is the slice of the visit store the engine needs.
type Visits interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Visit, error)
	Create(ctx context.Context, v *patient.Visit) error
	AppendMedications(ctx context.Context, visitID uuid.UUID, lines []patient.MedicationLine) error
}

// Transactor runs fn so that every store call made with its context commits
// or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Observer receives one observation per engine call.
type Observer interface {
	ObserveDispense(operation, outcome string, units int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveDispense(string, string, int, time.Duration) {}

type Option func(*Engine)

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

type Engine struct {
	inventory Inventory
	visits    Visits
	tx        Transactor
	observer  Observer
	tracer    trace.Tracer
	now       func() time.Time
}

var _ patient.Dispenser = (*Engine)(nil)

func NewEngine(inventory Inventory, visits Visits, tx Transactor, opts ...Option) *Engine {
	e := &Engine{
		inventory: inventory,
		visits:    visits,
		tx:        tx,
		observer:  nopObserver{},
		tracer:    otel.Tracer("github.com/carehub/hms/internal/domain/dispensing"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Admit creates v and dispenses lines onto it. With no lines it only creates
// the visit.
func (e *Engine) Admit(ctx context.Context, v *patient.Visit, lines []patient.LineRequest) (*patient.Visit, error) {
	if v == nil {
		return nil, apperr.InvalidArgument("visit is required")
	}
	if err := v.Normalize(); err != nil {
		return nil, err
	}
	return e.reserveAndDispense(ctx, OpAdmit, target{create: v}, lines)
}

// Dispense appends lines to the existing visit visitID.
func (e *Engine) Dispense(ctx context.Context, visitID uuid.UUID, lines []patient.LineRequest) (*patient.Visit, error) {
	return e.reserveAndDispense(ctx, OpDispense, target{visitID: visitID}, lines)
}

// target is either a visit to create or the id of one to append to.
type target struct {
	create  *patient.Visit
	visitID uuid.UUID
}

type checkedLine struct {
	raw      string
	id       uuid.UUID
	quantity int
}

func (e *Engine) reserveAndDispense(ctx context.Context, op string, t target, reqs []patient.LineRequest) (visit *patient.Visit, err error) {
	start := e.now()
	ctx, span := e.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("dispensing.operation", op),
		attribute.Int("dispensing.lines", len(reqs)),
	))
	defer span.End()

	units := 0
	defer func() {
		outcome := outcomeOf(err)
		span.SetAttributes(attribute.String("dispensing.outcome", outcome))
		e.observer.ObserveDispense(op, outcome, units, e.now().Sub(start))

		logger := zerolog.Ctx(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			logger.Warn().Err(err).Str("operation", op).Str("outcome", outcome).
				Int("lines", len(reqs)).Msg("dispense rejected")
			return
		}
		logger.Info().Str("operation", op).Str("visit_id", visit.ID.String()).
			Int("lines", len(reqs)).Int("units", units).Msg("medications dispensed")
	}()

	if t.create == nil {
		if _, err := e.visits.GetByID(ctx, t.visitID); err != nil {
			return nil, apperr.AsStore("load visit", err)
		}
	}

	checked, err := e.validate(ctx, reqs)
	if err != nil {
		return nil, err
	}

	err = e.tx.WithinTx(ctx, func(ctx context.Context) error {
		committedAt := e.now()
		for _, c := range lockOrder(checked) {
			ok, err := e.inventory.ConditionalDecrement(ctx, c.id, c.quantity, committedAt)
			if err != nil {
				return apperr.AsStore("decrement stock", err)
			}
			if !ok {
				return e.reclassify(ctx, c, committedAt)
			}
		}

		lines := make([]patient.MedicationLine, len(checked))
		for i, c := range checked {
			lines[i] = patient.MedicationLine{
				ID:             uuid.New(),
				MedicineID:     c.id,
				Quantity:       c.quantity,
				PrescribedDate: committedAt,
			}
		}

		var v *patient.Visit
		if t.create != nil {
			t.create.Medications = lines
			if err := e.visits.Create(ctx, t.create); err != nil {
				return apperr.AsStore("create visit", err)
			}
			v = t.create
		} else {
			if err := e.visits.AppendMedications(ctx, t.visitID, lines); err != nil {
				return apperr.AsStore("append medications", err)
			}
			reloaded, err := e.visits.GetByID(ctx, t.visitID)
			if err != nil {
				return apperr.AsStore("reload visit", err)
			}
			v = reloaded
		}

		if err := patient.ResolveMedications(ctx, e.inventory, v); err != nil {
			return err
		}
		visit = v
		return nil
	})
	if err != nil {
		return nil, apperr.AsStore("dispense", err)
	}

	for _, c := range checked {
		units += c.quantity
	}
	return visit, nil
}

// validate checks every line in request order against the catalog as it is
// right now. The first failing line decides the error.
func (e *Engine) validate(ctx context.Context, reqs []patient.LineRequest) ([]checkedLine, error) {
	asOf := e.now()
	checked := make([]checkedLine, 0, len(reqs))
	for _, r := range reqs {
		raw := strings.TrimSpace(r.MedicineID)
		if raw == "" || r.Quantity < 1 {
			return nil, apperr.InvalidArgument("Invalid medication data")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, medicineNotFound(raw)
		}

		m, err := e.inventory.GetByID(ctx, id)
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, medicineNotFound(raw)
		}
		if err != nil {
			return nil, apperr.AsStore("load medicine", err)
		}
		if r.Quantity > m.Quantity {
			return nil, apperr.InsufficientStock(m.MedicineName, m.Quantity)
		}
		if m.ExpiredAt(asOf) {
			return nil, apperr.ExpiredStock(m.MedicineName)
		}
		checked = append(checked, checkedLine{raw: raw, id: id, quantity: r.Quantity})
	}
	return checked, nil
}

// lockOrder returns the lines sorted by medicine id. Decrements take row
// locks that are held until commit, so every call acquires them in the same
// order.
func lockOrder(checked []checkedLine) []checkedLine {
	sorted := slices.Clone(checked)
	slices.SortStableFunc(sorted, func(a, b checkedLine) int {
		return bytes.Compare(a.id[:], b.id[:])
	})
	return sorted
}

// reclassify explains a decrement that matched no row. The stock changed
// between validation and commit, so the medicine is read again.
func (e *Engine) reclassify(ctx context.Context, c checkedLine, asOf time.Time) error {
	m, err := e.inventory.GetByID(ctx, c.id)
	switch {
	case apperr.Is(err, apperr.KindNotFound):
		return medicineNotFound(c.raw)
	case err != nil:
		return apperr.AsStore("reload medicine", err)
	case m.Quantity < c.quantity:
		return apperr.InsufficientStock(m.MedicineName, m.Quantity)
	case m.ExpiredAt(asOf):
		return apperr.ExpiredStock(m.MedicineName)
	default:
		return apperr.InsufficientStock(m.MedicineName, m.Quantity)
	}
}

func medicineNotFound(id string) error {
	return apperr.NotFound("Medicine with ID %s not found", id)
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return apperr.KindOf(err).String()
}
