package scheduling

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/SrinivasaPrasadGade/med-x/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Organization desk
	api.GET("/org/appointments", h.ListOrgAppointments)
	api.POST("/org/appointments", h.CreateOrgAppointment)
	api.PUT("/org/appointments/:id", h.UpdateAppointmentStatus)

	// Doctor
	api.GET("/doctor/appointments", h.ListDoctorAppointments)
	api.PUT("/doctor/appointments/:id/complete", h.CompleteAppointment)
	api.GET("/doctor/patients/:name/history", h.PatientHistory)

	// Patient
	api.GET("/patient/appointments", h.ListPatientAppointments)
	api.POST("/patient/appointments", h.BookAppointment)
	api.PUT("/patient/appointments/:id/cancel", h.CancelAppointment)
}

type statusResponse struct {
	Status  string     `json:"status"`
	Message string     `json:"message,omitempty"`
	ID      *uuid.UUID `json:"id,omitempty"`
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidDate):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid date format")
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Appointment not found")
	case errors.Is(err, ErrInvalidReference), errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func queryID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.QueryParam(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func listJSON[V any](c echo.Context, p pagination.Params, items []*AppointmentDetail, total int, view func(*AppointmentDetail) V) error {
	out := make([]V, 0, len(items))
	for _, d := range items {
		out = append(out, view(d))
	}
	p.SetHeaders(c, total)
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) create(c echo.Context, msg string) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.CreateAppointment(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "success", Message: msg, ID: &a.ID})
}

func (h *Handler) CreateOrgAppointment(c echo.Context) error {
	return h.create(c, "Appointment scheduled")
}

func (h *Handler) BookAppointment(c echo.Context) error {
	return h.create(c, "Appointment booked")
}

func (h *Handler) ListOrgAppointments(c echo.Context) error {
	orgID, err := queryID(c, "organization_id")
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListForOrganization(c.Request().Context(), orgID, p)
	if err != nil {
		return httpError(err)
	}
	return listJSON(c, p, items, total, OrgView)
}

func (h *Handler) UpdateAppointmentStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in StatusInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.UpdateStatus(c.Request().Context(), id, in.Status); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "success"})
}

func (h *Handler) ListDoctorAppointments(c echo.Context) error {
	doctorID, err := queryID(c, "doctor_id")
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListForDoctor(c.Request().Context(), doctorID, p)
	if err != nil {
		return httpError(err)
	}
	return listJSON(c, p, items, total, DoctorView)
}

func (h *Handler) CompleteAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in CompleteInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.Complete(c.Request().Context(), id, in); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "success", Message: "Consultation completed"})
}

func (h *Handler) PatientHistory(c echo.Context) error {
	name, err := url.PathUnescape(c.Param("name"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient name")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.PatientHistory(c.Request().Context(), name, p)
	if err != nil {
		return httpError(err)
	}
	return listJSON(c, p, items, total, HistoryView)
}

func (h *Handler) ListPatientAppointments(c echo.Context) error {
	patientID, err := queryID(c, "patient_id")
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListForPatient(c.Request().Context(), patientID, p)
	if err != nil {
		return httpError(err)
	}
	return listJSON(c, p, items, total, PatientView)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if _, err := h.svc.Cancel(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "success", Message: "Appointment cancelled"})
}
