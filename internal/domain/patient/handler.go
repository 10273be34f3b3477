package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehub/hms/internal/platform/apperr"
	"github.com/carehub/hms/pkg/clocktime"
	"github.com/carehub/hms/pkg/pagination"
)

type Handler struct {
	svc            *Service
	dispenser      Dispenser
	normalizeTimes bool
}

// NewHandler wires the visit endpoints. With normalizeTimes set, visit times
// are rewritten by clocktime.To24Hour before they are stored.
func NewHandler(svc *Service, dispenser Dispenser, normalizeTimes bool) *Handler {
	return &Handler{svc: svc, dispenser: dispenser, normalizeTimes: normalizeTimes}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/patients")
	g.GET("", h.ListVisits)
	g.POST("", h.CreateVisit)
	g.GET("/unpaid", h.ListUnpaid)
	g.GET("/:id", h.GetVisit)
	g.PUT("/:id", h.UpdateVisit)
	g.DELETE("/:id", h.DeleteVisit)
	g.PUT("/:id/medications", h.AddMedications)
}

func visitID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.InvalidArgument("Invalid patient id")
	}
	return id, nil
}

func (h *Handler) bindVisit(c echo.Context) (*VisitInput, *Visit, error) {
	var in VisitInput
	if err := c.Bind(&in); err != nil {
		return nil, nil, apperr.InvalidArgument("Invalid request body")
	}
	v, err := in.ToVisit()
	if err != nil {
		return nil, nil, err
	}
	if h.normalizeTimes {
		v.Time = clocktime.To24Hour(v.Time)
	}
	return &in, v, nil
}

// CreateVisit admits a patient and dispenses any medications in the same call.
func (h *Handler) CreateVisit(c echo.Context) error {
	in, v, err := h.bindVisit(c)
	if err != nil {
		return err
	}
	created, err := h.dispenser.Admit(c.Request().Context(), v, in.Medications)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, created)
}

func (h *Handler) AddMedications(c echo.Context) error {
	id, err := visitID(c)
	if err != nil {
		return err
	}
	var body struct {
		Medications *[]LineRequest `json:"medications"`
	}
	if err := c.Bind(&body); err != nil || body.Medications == nil {
		return apperr.InvalidArgument("Medications array is required")
	}
	v, err := h.dispenser.Dispense(c.Request().Context(), id, *body.Medications)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetVisit(c echo.Context) error {
	id, err := visitID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) UpdateVisit(c echo.Context) error {
	id, err := visitID(c)
	if err != nil {
		return err
	}
	_, v, err := h.bindVisit(c)
	if err != nil {
		return err
	}
	updated, err := h.svc.UpdateVisit(c.Request().Context(), id, v)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteVisit(c echo.Context) error {
	id, err := visitID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteVisit(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Patient deleted successfully"})
}

func (h *Handler) ListVisits(c echo.Context) error {
	page, err := pagination.FromContext(c)
	if err != nil {
		return apperr.InvalidArgument("%s", err.Error())
	}
	visits, total, err := h.svc.ListVisits(c.Request().Context(), page)
	return respondList(c, visits, total, err)
}

func (h *Handler) ListUnpaid(c echo.Context) error {
	page, err := pagination.FromContext(c)
	if err != nil {
		return apperr.InvalidArgument("%s", err.Error())
	}
	visits, total, err := h.svc.ListUnpaid(c.Request().Context(), page)
	return respondList(c, visits, total, err)
}

func respondList(c echo.Context, visits []*Visit, total int, err error) error {
	if err != nil {
		return err
	}
	if visits == nil {
		visits = []*Visit{}
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, visits)
}
