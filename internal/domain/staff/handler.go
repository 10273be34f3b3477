package staff

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
	g := api.Group("/employees")
	g.GET("", h.ListEmployees)
	g.POST("", h.CreateEmployee)
	g.PUT("/:id", h.UpdateEmployee)
	g.DELETE("/:id", h.DeleteEmployee)
}

func employeeID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.InvalidArgument("Invalid employee id")
	}
	return id, nil
}

func (h *Handler) CreateEmployee(c echo.Context) error {
	var in EmployeeInput
	if err := c.Bind(&in); err != nil {
		return apperr.InvalidArgument("Invalid request body")
	}
	e, err := h.svc.CreateEmployee(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) UpdateEmployee(c echo.Context) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}
	var in EmployeeInput
	if err := c.Bind(&in); err != nil {
		return apperr.InvalidArgument("Invalid request body")
	}
	e, err := h.svc.UpdateEmployee(c.Request().Context(), id, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteEmployee(c echo.Context) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteEmployee(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Employee deleted successfully"})
}

func (h *Handler) ListEmployees(c echo.Context) error {
	page, err := pagination.FromContext(c)
	if err != nil {
		return apperr.InvalidArgument("%s", err.Error())
	}
	items, total, err := h.svc.ListEmployees(c.Request().Context(), page)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Employee{}
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}
