package scheduling

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medmeet/medmeet/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/providers/:id/windows", h.CreateWindow)
	api.GET("/providers/:id/windows", h.ListWindows)
	api.GET("/providers/:id/agenda", h.GetAgenda)

	api.POST("/bookings", h.CreateBooking)
	api.GET("/bookings/today/count", h.CountBookingsToday)
	api.GET("/bookings/:id", h.GetBooking)
}

type CreateWindowRequest struct {
	Weekday        string `json:"weekday" validate:"required"`
	MorningStart   string `json:"morning_start" validate:"required,datetime=15:04"`
	MorningEnd     string `json:"morning_end" validate:"required,datetime=15:04"`
	AfternoonStart string `json:"afternoon_start" validate:"required,datetime=15:04"`
	AfternoonEnd   string `json:"afternoon_end" validate:"required,datetime=15:04"`
}

// CreateBookingRequest names each party by id or, when the id is omitted, by
// exact name.
type CreateBookingRequest struct {
	ProviderID   string `json:"provider_id" validate:"omitempty,uuid"`
	PatientID    string `json:"patient_id" validate:"omitempty,uuid"`
	ProviderName string `json:"provider_name"`
	PatientName  string `json:"patient_name"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string `json:"time" validate:"required,datetime=15:04"`
}

type CountResponse struct {
	Count int `json:"count"`
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.InvalidInput("malformed request body")
	}
	return c.Validate(req)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.InvalidInput("invalid id")
	}
	return id, nil
}

func parseOptionalID(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}
	id, _ := uuid.Parse(s)
	return id
}

// -- Weekly windows --

func (h *Handler) CreateWindow(c echo.Context) error {
	providerID, err := parseID(c)
	if err != nil {
		return err
	}
	var req CreateWindowRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	w := &WeeklyWindow{ProviderID: providerID}
	if w.Weekday, err = ParseWeekday(req.Weekday); err != nil {
		return err
	}
	for _, f := range []struct {
		dst *Clock
		src string
	}{
		{&w.MorningStart, req.MorningStart},
		{&w.MorningEnd, req.MorningEnd},
		{&w.AfternoonStart, req.AfternoonStart},
		{&w.AfternoonEnd, req.AfternoonEnd},
	} {
		if *f.dst, err = ParseClock(f.src); err != nil {
			return err
		}
	}

	if err := h.svc.CreateWindow(c.Request().Context(), w); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) ListWindows(c echo.Context) error {
	providerID, err := parseID(c)
	if err != nil {
		return err
	}
	windows, err := h.svc.ListWindows(c.Request().Context(), providerID)
	if err != nil {
		return err
	}
	if windows == nil {
		windows = []*WeeklyWindow{}
	}
	return c.JSON(http.StatusOK, windows)
}

// -- Agenda --

func (h *Handler) GetAgenda(c echo.Context) error {
	providerID, err := parseID(c)
	if err != nil {
		return err
	}
	raw := c.QueryParam("date")
	if raw == "" {
		return apperr.InvalidInput("date is required")
	}
	date, err := time.Parse(DateLayout, raw)
	if err != nil {
		return apperr.InvalidInput("date must be YYYY-MM-DD")
	}

	agenda, err := h.svc.GetAgenda(c.Request().Context(), providerID, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agenda)
}

// -- Bookings --

func (h *Handler) CreateBooking(c echo.Context) error {
	var req CreateBookingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	start, err := time.Parse(DateLayout+" 15:04", req.Date+" "+req.Time)
	if err != nil {
		return apperr.InvalidInput("invalid date or time")
	}

	b, err := h.svc.CreateBooking(c.Request().Context(), BookingRequest{
		ProviderID:   parseOptionalID(req.ProviderID),
		PatientID:    parseOptionalID(req.PatientID),
		ProviderName: req.ProviderName,
		PatientName:  req.PatientName,
		Start:        start,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	detail, err := h.svc.GetBookingDetail(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) CountBookingsToday(c echo.Context) error {
	n, err := h.svc.CountBookingsToday(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CountResponse{Count: n})
}
