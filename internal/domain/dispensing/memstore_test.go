package dispensing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/hms/internal/domain/patient"
	"github.com/carehub/hms/internal/domain/pharmacy"
	"github.com/carehub/hms/internal/platform/apperr"
)

// memStore backs Inventory, Visits and Transactor in memory. Transactions are
// serialized and restore a snapshot when fn fails.
type memStore struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	meds   map[uuid.UUID]pharmacy.Medicine
	visits map[uuid.UUID]patient.Visit

	decrements int
	// locked lists every medicine id passed to ConditionalDecrement, in call order.
	locked     []uuid.UUID
	failAppend error
	beforeTx   func(s *memStore)
}

func newMemStore() *memStore {
	return &memStore{
		meds:   make(map[uuid.UUID]pharmacy.Medicine),
		visits: make(map[uuid.UUID]patient.Visit),
	}
}

func (s *memStore) addMedicine(name string, qty int, expiry time.Time) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.meds[id] = pharmacy.Medicine{ID: id, MedicineName: name, Quantity: qty, ExpiryDate: expiry}
	return id
}

func (s *memStore) quantity(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meds[id].Quantity
}

func (s *memStore) setMedicine(id uuid.UUID, fn func(m *pharmacy.Medicine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.meds[id]
	fn(&m)
	s.meds[id] = m
}

func (s *memStore) deleteMedicine(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meds, id)
}

// -- Inventory --

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*pharmacy.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meds[id]
	if !ok {
		return nil, apperr.NotFound("Medicine not found")
	}
	return &m, nil
}

func (s *memStore) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*pharmacy.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]*pharmacy.Medicine)
	for _, id := range ids {
		if m, ok := s.meds[id]; ok {
			m := m
			out[id] = &m
		}
	}
	return out, nil
}

func (s *memStore) ConditionalDecrement(_ context.Context, id uuid.UUID, qty int, asOf time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = append(s.locked, id)
	m, ok := s.meds[id]
	if !ok || m.Quantity < qty || m.ExpiredAt(asOf) {
		return false, nil
	}
	m.Quantity -= qty
	s.meds[id] = m
	s.decrements++
	return true, nil
}

// -- Visits --

type visitStore struct{ *memStore }

func (s visitStore) GetByID(_ context.Context, id uuid.UUID) (*patient.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[id]
	if !ok {
		return nil, apperr.NotFound("Patient not found")
	}
	v.Medications = append([]patient.MedicationLine{}, v.Medications...)
	return &v, nil
}

func (s visitStore) Create(_ context.Context, v *patient.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = uuid.New()
	v.Date = time.Now()
	v.CreatedAt, v.UpdatedAt = v.Date, v.Date
	cp := *v
	cp.Medications = append([]patient.MedicationLine{}, v.Medications...)
	s.visits[v.ID] = cp
	return nil
}

func (s visitStore) AppendMedications(_ context.Context, visitID uuid.UUID, lines []patient.MedicationLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend != nil {
		return s.failAppend
	}
	v, ok := s.visits[visitID]
	if !ok {
		return apperr.NotFound("Patient not found")
	}
	v.Medications = append(append([]patient.MedicationLine{}, v.Medications...), lines...)
	s.visits[visitID] = v
	return nil
}

// -- Transactor --

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if s.beforeTx != nil {
		s.beforeTx(s)
	}

	s.mu.Lock()
	meds := make(map[uuid.UUID]pharmacy.Medicine, len(s.meds))
	for k, v := range s.meds {
		meds[k] = v
	}
	visits := make(map[uuid.UUID]patient.Visit, len(s.visits))
	for k, v := range s.visits {
		visits[k] = v
	}
	decrements := s.decrements
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.meds, s.visits, s.decrements = meds, visits, decrements
		s.mu.Unlock()
		return err
	}
	return nil
}
