package patient

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carehub/hms/internal/domain/pharmacy"
	"github.com/carehub/hms/internal/platform/apperr"
)

const (
	FeesPaid   = "PAID"
	FeesUnpaid = "UNPAID"
)

const maxTreatmentLen = 50

// Visit is one patient visit. Medications is the append-only dispensing history.
type Visit struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Date        time.Time        `json:"date"`
	Time        string           `json:"time"`
	Fees        string           `json:"fees"`
	Amount      decimal.Decimal  `json:"amount"`
	Doctor      string           `json:"doctor"`
	Treatment   string           `json:"treatment"`
	ReceivedBy  string           `json:"receivedBy"`
	Medications []MedicationLine `json:"medications"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Normalize trims and validates the editable fields. Amount is zeroed for
// paid visits.
func (v *Visit) Normalize() error {
	v.Name = strings.TrimSpace(v.Name)
	switch {
	case v.Name == "":
		return apperr.InvalidArgument("name is required")
	case v.Time == "":
		return apperr.InvalidArgument("time is required")
	case v.Fees != FeesPaid && v.Fees != FeesUnpaid:
		return apperr.InvalidArgument("fees must be PAID or UNPAID")
	case v.Doctor == "":
		return apperr.InvalidArgument("doctor is required")
	case v.Treatment == "":
		return apperr.InvalidArgument("treatment is required")
	case utf8.RuneCountInString(v.Treatment) > maxTreatmentLen:
		return apperr.InvalidArgument("treatment must be at most %d characters", maxTreatmentLen)
	case v.Amount.IsNegative():
		return apperr.InvalidArgument("amount must not be negative")
	}
	if v.Fees == FeesPaid {
		v.Amount = decimal.Zero
	}
	if v.Medications == nil {
		v.Medications = []MedicationLine{}
	}
	return nil
}

// MedicationLine records medicine handed out during a visit. MedicineID is a
// weak reference; Medicine is filled in on read and stays nil once the
// catalog entry is gone.
type MedicationLine struct {
	ID             uuid.UUID
	MedicineID     uuid.UUID
	Medicine       *pharmacy.Medicine
	Quantity       int
	PrescribedDate time.Time
}

// MarshalJSON renders "medicine" as the full catalog entry when resolved and
// as the bare id otherwise.
func (l MedicationLine) MarshalJSON() ([]byte, error) {
	var medicine interface{} = l.MedicineID
	if l.Medicine != nil {
		medicine = l.Medicine
	}
	return json.Marshal(struct {
		ID             uuid.UUID   `json:"id"`
		Medicine       interface{} `json:"medicine"`
		Quantity       int         `json:"quantity"`
		PrescribedDate time.Time   `json:"prescribedDate"`
	}{l.ID, medicine, l.Quantity, l.PrescribedDate})
}

// LineRequest asks for quantity units of one medicine.
type LineRequest struct {
	MedicineID string `json:"medicineId"`
	Quantity   int    `json:"quantity"`
}

// VisitInput is the create/update payload.
type VisitInput struct {
	Name        string           `json:"name"`
	Time        string           `json:"time"`
	Fees        string           `json:"fees"`
	Amount      *decimal.Decimal `json:"amount"`
	Doctor      string           `json:"doctor"`
	Treatment   string           `json:"treatment"`
	ReceivedBy  string           `json:"receivedBy"`
	Medications []LineRequest    `json:"medications"`
}

func (in *VisitInput) ToVisit() (*Visit, error) {
	v := &Visit{
		Name:       in.Name,
		Time:       in.Time,
		Fees:       in.Fees,
		Doctor:     in.Doctor,
		Treatment:  in.Treatment,
		ReceivedBy: in.ReceivedBy,
	}
	if in.Amount != nil {
		v.Amount = *in.Amount
	}
	if err := v.Normalize(); err != nil {
		return nil, err
	}
	return v, nil
}
