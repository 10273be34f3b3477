package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehub/hms/internal/domain/pharmacy"
	"github.com/carehub/hms/internal/platform/apperr"
)

type fakeDispenser struct {
	repo       *mockVisitRepo
	admitted   *Visit
	admitLines []LineRequest
	dispensed  []LineRequest
	err        error
}

func (f *fakeDispenser) Admit(ctx context.Context, v *Visit, lines []LineRequest) (*Visit, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.admitted, f.admitLines = v, lines
	if err := f.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (f *fakeDispenser) Dispense(ctx context.Context, visitID uuid.UUID, lines []LineRequest) (*Visit, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.dispensed = lines
	return f.repo.GetByID(ctx, visitID)
}

func newTestHandler(normalize bool) (*Handler, *fakeDispenser, *echo.Echo) {
	repo := newMockVisitRepo()
	d := &fakeDispenser{repo: repo}
	return NewHandler(NewService(repo, mockResolver{}), d, normalize), d, echo.New()
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

const visitBody = `{"name":"John Doe","time":"2:30","fees":"PAID","amount":200,"doctor":"Dr. Who",
	"treatment":"Fever","medications":[{"medicineId":"8d1f3c52-8f4e-4c41-9a55-2d5b0a1b7e10","quantity":2}]}`

func TestHandler_CreateVisit(t *testing.T) {
	h, d, e := newTestHandler(false)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/patients", visitBody), rec)
	if err := h.CreateVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if d.admitted.Time != "2:30" {
		t.Errorf("expected time stored as sent, got %q", d.admitted.Time)
	}
	if !d.admitted.Amount.IsZero() {
		t.Errorf("expected amount 0 for paid visit, got %s", d.admitted.Amount)
	}
	if len(d.admitLines) != 1 || d.admitLines[0].Quantity != 2 {
		t.Errorf("expected medication lines forwarded, got %+v", d.admitLines)
	}
}

func TestHandler_CreateVisit_NormalizesTime(t *testing.T) {
	h, d, e := newTestHandler(true)

	c := e.NewContext(jsonRequest(http.MethodPost, "/api/patients", visitBody), httptest.NewRecorder())
	if err := h.CreateVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.admitted.Time != "14:30" {
		t.Errorf("expected normalized time 14:30, got %q", d.admitted.Time)
	}
}

func TestHandler_CreateVisit_Invalid(t *testing.T) {
	h, d, e := newTestHandler(false)

	c := e.NewContext(jsonRequest(http.MethodPost, "/api/patients", `{"name":"x","fees":"PAID"}`), httptest.NewRecorder())
	if err := h.CreateVisit(c); apperr.KindOf(err) != apperr.KindInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if d.admitted != nil {
		t.Error("expected dispenser not to be called")
	}
}

func TestHandler_CreateVisit_PropagatesStockError(t *testing.T) {
	h, d, e := newTestHandler(false)
	d.err = apperr.InsufficientStock("Paracetamol", 1)

	c := e.NewContext(jsonRequest(http.MethodPost, "/api/patients", visitBody), httptest.NewRecorder())
	err := h.CreateVisit(c)
	if apperr.KindOf(err) != apperr.KindInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if err.Error() != "Insufficient stock for Paracetamol. Available: 1" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestHandler_AddMedications(t *testing.T) {
	h, d, e := newTestHandler(false)
	v := validVisit()
	_ = v.Normalize()
	_ = d.repo.Create(context.Background(), v)

	tests := []struct {
		name string
		id   string
		body string
		kind apperr.Kind
	}{
		{"missing array", v.ID.String(), `{}`, apperr.KindInvalidArgument},
		{"array not a list", v.ID.String(), `{"medications":"nope"}`, apperr.KindInvalidArgument},
		{"bad id", "123", `{"medications":[]}`, apperr.KindInvalidArgument},
		{"ok", v.ID.String(), `{"medications":[{"medicineId":"m","quantity":1}]}`, apperr.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.NewContext(jsonRequest(http.MethodPut, "/", tt.body), httptest.NewRecorder())
			c.SetParamNames("id")
			c.SetParamValues(tt.id)
			err := h.AddMedications(c)
			if tt.kind == apperr.KindUnknown {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if apperr.KindOf(err) != tt.kind {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
	if len(d.dispensed) != 1 || d.dispensed[0].MedicineID != "m" {
		t.Errorf("expected dispensed lines forwarded, got %+v", d.dispensed)
	}
}

func TestHandler_DeleteVisit(t *testing.T) {
	h, d, e := newTestHandler(false)
	v := validVisit()
	_ = v.Normalize()
	_ = d.repo.Create(context.Background(), v)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(v.ID.String())
	if err := h.DeleteVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Patient deleted successfully") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestMedicationLine_JSON(t *testing.T) {
	med := &pharmacy.Medicine{ID: uuid.New(), MedicineName: "Cetirizine"}
	stamp := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	lines := []MedicationLine{
		{ID: uuid.New(), MedicineID: med.ID, Medicine: med, Quantity: 2, PrescribedDate: stamp},
		{ID: uuid.New(), MedicineID: uuid.MustParse("8d1f3c52-8f4e-4c41-9a55-2d5b0a1b7e10"), Quantity: 1, PrescribedDate: stamp},
	}

	raw, err := json.Marshal(lines)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded []map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	resolved, ok := decoded[0]["medicine"].(map[string]interface{})
	if !ok || resolved["medicineName"] != "Cetirizine" {
		t.Errorf("expected expanded medicine, got %v", decoded[0]["medicine"])
	}
	if decoded[1]["medicine"] != "8d1f3c52-8f4e-4c41-9a55-2d5b0a1b7e10" {
		t.Errorf("expected bare id for missing medicine, got %v", decoded[1]["medicine"])
	}
	if decoded[0]["quantity"].(float64) != 2 {
		t.Errorf("unexpected quantity %v", decoded[0]["quantity"])
	}
}
