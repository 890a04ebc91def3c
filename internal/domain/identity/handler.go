package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/register", h.RegisterPatient)
	api.POST("/login", h.Login)

	api.POST("/org/register", h.RegisterOrganization)
	api.GET("/org/doctors", h.ListOrgDoctors)
	api.POST("/org/doctors", h.AddDoctor)
	api.PUT("/org/doctors/:id", h.UpdateDoctor)
	api.DELETE("/org/doctors/:id", h.DeleteDoctor)

	api.GET("/doctors", h.ListDoctors)
	api.PUT("/patient/profile", h.UpdatePatientProfile)
}

type statusResponse struct {
	Status  string     `json:"status"`
	Message string     `json:"message,omitempty"`
	ID      *uuid.UUID `json:"id,omitempty"`
}

func success(c echo.Context, msg string, id *uuid.UUID) error {
	return c.JSON(http.StatusOK, statusResponse{Status: "success", Message: msg, ID: id})
}

// httpError maps service errors; notFound is the message used for ErrNotFound.
func httpError(err error, notFound string) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Msg)
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	case errors.Is(err, ErrEmailTaken):
		return echo.NewHTTPError(http.StatusBadRequest, "Email already registered")
	case errors.Is(err, ErrOrganizationExists):
		return echo.NewHTTPError(http.StatusBadRequest, "Organization already exists")
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid email or password")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseID(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var in RegisterPatientInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.RegisterPatient(c.Request().Context(), in)
	if err != nil {
		return httpError(err, "User not found")
	}
	return success(c, "User registered successfully", &u.ID)
}

func (h *Handler) RegisterOrganization(c echo.Context) error {
	var in RegisterOrganizationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	org, _, err := h.svc.RegisterOrganization(c.Request().Context(), in)
	if errors.Is(err, ErrEmailTaken) {
		return echo.NewHTTPError(http.StatusBadRequest, "Admin email already registered")
	}
	if err != nil {
		return httpError(err, "Organization not found")
	}
	return success(c, "Organization and Admin registered", &org.ID)
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return httpError(err, "User not found")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) AddDoctor(c echo.Context) error {
	var in AddDoctorInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.AddDoctor(c.Request().Context(), in)
	if err != nil {
		return httpError(err, "Organization not found")
	}
	return success(c, "Doctor added successfully", &u.ID)
}

func (h *Handler) ListOrgDoctors(c echo.Context) error {
	orgID, err := parseID(c.QueryParam("organization_id"), "organization_id")
	if err != nil {
		return err
	}
	doctors, err := h.svc.ListOrgDoctors(c.Request().Context(), orgID, c.QueryParam("search"))
	if err != nil {
		return httpError(err, "Organization not found")
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	var upd DoctorUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.UpdateDoctor(c.Request().Context(), id, upd); err != nil {
		return httpError(err, "Doctor not found")
	}
	return success(c, "Doctor updated", nil)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDoctor(c.Request().Context(), id); err != nil {
		return httpError(err, "Doctor not found")
	}
	return success(c, "Doctor removed", nil)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	doctors, err := h.svc.ListDoctors(c.Request().Context(), c.QueryParam("specialization"))
	if err != nil {
		return httpError(err, "Doctor not found")
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) UpdatePatientProfile(c echo.Context) error {
	id, err := parseID(c.QueryParam("patient_id"), "patient_id")
	if err != nil {
		return err
	}
	var upd PatientProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.UpdatePatientProfile(c.Request().Context(), id, upd); err != nil {
		return httpError(err, "User not found")
	}
	return success(c, "Profile updated", nil)
}
