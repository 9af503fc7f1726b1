package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medmeet/medmeet/internal/platform/apperr"
	"github.com/medmeet/medmeet/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/providers", h.ListProviders)
	api.POST("/providers", h.CreateProvider)
	api.GET("/providers/count", h.CountProviders)
	api.GET("/providers/:id", h.GetProvider)

	api.GET("/patients", h.ListPatients)
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients/count", h.CountPatients)
	api.GET("/patients/search", h.SearchPatients)
	api.GET("/patients/:id", h.GetPatient)
}

// CountResponse is the body of the count endpoints.
type CountResponse struct {
	Count int `json:"count"`
}

type CreateProviderRequest struct {
	Name                string `json:"name" validate:"required"`
	Email               string `json:"email" validate:"required,email"`
	Specialty           string `json:"specialty" validate:"required"`
	LicenseNumber       string `json:"license_number" validate:"required"`
	ConsultationMinutes int    `json:"consultation_minutes" validate:"gt=0,lte=480"`
}

type CreatePatientRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	NationalID string `json:"national_id" validate:"required"`
	Address    string `json:"address" validate:"required"`
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

// -- Provider Handlers --

func (h *Handler) CreateProvider(c echo.Context) error {
	var req CreateProviderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	p := &Provider{
		Name:                req.Name,
		Email:               req.Email,
		Specialty:           req.Specialty,
		LicenseNumber:       req.LicenseNumber,
		ConsultationMinutes: req.ConsultationMinutes,
	}
	if err := h.svc.CreateProvider(c.Request().Context(), p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProvider(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetProvider(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListProviders(c echo.Context) error {
	pg := pagination.FromContext(c)
	providers, total, err := h.svc.ListProviders(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if providers == nil {
		providers = []*Provider{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(providers, total, pg))
}

func (h *Handler) CountProviders(c echo.Context) error {
	n, err := h.svc.CountProviders(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CountResponse{Count: n})
}

// -- Patient Handlers --

func (h *Handler) CreatePatient(c echo.Context) error {
	var req CreatePatientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	p := &Patient{
		Name:       req.Name,
		Email:      req.Email,
		NationalID: req.NationalID,
		Address:    req.Address,
	}
	if err := h.svc.CreatePatient(c.Request().Context(), p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg))
}

func (h *Handler) CountPatients(c echo.Context) error {
	n, err := h.svc.CountPatients(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CountResponse{Count: n})
}

func (h *Handler) SearchPatients(c echo.Context) error {
	patients, err := h.svc.SearchPatients(c.Request().Context(), c.QueryParam("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patients)
}
