package bed

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/carehub/hms/internal/platform/apperr"
	"github.com/carehub/hms/pkg/clocktime"
)

type Handler struct {
	svc            *Service
	normalizeTimes bool
}

func NewHandler(svc *Service, normalizeTimes bool) *Handler {
	return &Handler{svc: svc, normalizeTimes: normalizeTimes}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/beds")
	g.POST("/initialize", h.Initialize)
	g.GET("", h.List)
	g.GET("/available", h.ListAvailable)
	g.GET("/booked", h.ListBooked)
	g.GET("/stats", h.Stats)
	g.POST("/:id/book", h.Book)
	g.POST("/:id/unbook", h.Unbook)
	g.PUT("/:id", h.Update)
}

type bookingInput struct {
	IsBooked    bool   `json:"isBooked"`
	PatientName string `json:"patientName"`
	Time        string `json:"time"`
}

func bedID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return 0, apperr.InvalidArgument("Invalid bed id")
	}
	return id, nil
}

func (h *Handler) clock(t string) string {
	if h.normalizeTimes {
		return clocktime.To24Hour(t)
	}
	return t
}

func (h *Handler) Initialize(c echo.Context) error {
	created, err := h.svc.Initialize(c.Request().Context())
	if err != nil {
		return err
	}
	msg := "Beds already exist"
	if created {
		msg = "Beds initialized successfully"
	}
	return c.JSON(http.StatusOK, map[string]string{"message": msg})
}

func (h *Handler) List(c echo.Context) error {
	beds, err := h.svc.List(c.Request().Context())
	return respondList(c, beds, err)
}

func (h *Handler) ListAvailable(c echo.Context) error {
	beds, err := h.svc.ListAvailable(c.Request().Context())
	return respondList(c, beds, err)
}

func (h *Handler) ListBooked(c echo.Context) error {
	beds, err := h.svc.ListBooked(c.Request().Context())
	return respondList(c, beds, err)
}

func (h *Handler) Book(c echo.Context) error {
	id, err := bedID(c)
	if err != nil {
		return err
	}
	var in bookingInput
	if err := c.Bind(&in); err != nil {
		return apperr.InvalidArgument("Invalid request body")
	}
	b, err := h.svc.Book(c.Request().Context(), id, in.PatientName, h.clock(in.Time))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Unbook(c echo.Context) error {
	id, err := bedID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.Unbook(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := bedID(c)
	if err != nil {
		return err
	}
	var in bookingInput
	if err := c.Bind(&in); err != nil {
		return apperr.InvalidArgument("Invalid request body")
	}
	b, err := h.svc.Update(c.Request().Context(), &Bed{
		ID:          id,
		IsBooked:    in.IsBooked,
		PatientName: in.PatientName,
		Time:        h.clock(in.Time),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Stats(c echo.Context) error {
	s, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func respondList(c echo.Context, beds []*Bed, err error) error {
	if err != nil {
		return err
	}
	if beds == nil {
		beds = []*Bed{}
	}
	return c.JSON(http.StatusOK, beds)
}
