package pharmacy

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehub/hms/internal/platform/apperr"
	"github.com/carehub/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/pharmacy")
	g.GET("", h.ListMedicines)
	g.POST("", h.CreateMedicine)
	g.GET("/category/:category", h.ListByCategory)
	g.GET("/low-stock", h.ListLowStock)
	g.GET("/expiring", h.ListExpiring)
	g.GET("/:id", h.GetMedicine)
	g.PUT("/:id", h.UpdateMedicine)
	g.DELETE("/:id", h.DeleteMedicine)
}

func medicineID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.InvalidArgument("Invalid medicine id")
	}
	return id, nil
}

func (h *Handler) CreateMedicine(c echo.Context) error {
	var in MedicineInput
	if err := c.Bind(&in); err != nil {
		return apperr.InvalidArgument("Invalid request body")
	}
	m, err := h.svc.CreateMedicine(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) GetMedicine(c echo.Context) error {
	id, err := medicineID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMedicine(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) UpdateMedicine(c echo.Context) error {
	id, err := medicineID(c)
	if err != nil {
		return err
	}
	var in MedicineInput
	if err := c.Bind(&in); err != nil {
		return apperr.InvalidArgument("Invalid request body")
	}
	m, err := h.svc.UpdateMedicine(c.Request().Context(), id, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMedicine(c echo.Context) error {
	id, err := medicineID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteMedicine(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Medicine deleted successfully"})
}

func (h *Handler) ListMedicines(c echo.Context) error {
	page, err := pagination.FromContext(c)
	if err != nil {
		return apperr.InvalidArgument("%s", err.Error())
	}
	items, total, err := h.svc.ListMedicines(c.Request().Context(), page)
	return respondList(c, items, total, err)
}

func (h *Handler) ListByCategory(c echo.Context) error {
	page, err := pagination.FromContext(c)
	if err != nil {
		return apperr.InvalidArgument("%s", err.Error())
	}
	items, total, err := h.svc.ListByCategory(c.Request().Context(), c.Param("category"), page)
	return respondList(c, items, total, err)
}

func (h *Handler) ListLowStock(c echo.Context) error {
	page, err := pagination.FromContext(c)
	if err != nil {
		return apperr.InvalidArgument("%s", err.Error())
	}
	items, total, err := h.svc.ListLowStock(c.Request().Context(), page)
	return respondList(c, items, total, err)
}

func (h *Handler) ListExpiring(c echo.Context) error {
	page, err := pagination.FromContext(c)
	if err != nil {
		return apperr.InvalidArgument("%s", err.Error())
	}
	items, total, err := h.svc.ListExpiring(c.Request().Context(), page)
	return respondList(c, items, total, err)
}

func respondList(c echo.Context, items []*Medicine, total int, err error) error {
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Medicine{}
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}
