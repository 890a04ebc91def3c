package medication

import (
	"errors"
	"net/http"

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
	api.GET("/medications", h.ListMedications)
	api.POST("/medications", h.AddMedication)
	api.DELETE("/medications/:id", h.DeleteMedication)
	api.POST("/adherence", h.LogAdherence)
}

type statusResponse struct {
	Status string      `json:"status"`
	Data   *Medication `json:"data,omitempty"`
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Medication not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) ListMedications(c echo.Context) error {
	p := pagination.FromContext(c)
	meds, total, err := h.svc.ListMedications(c.Request().Context(), p)
	if err != nil {
		return httpError(err)
	}
	if meds == nil {
		meds = []*Medication{}
	}
	p.SetHeaders(c, total)
	return c.JSON(http.StatusOK, meds)
}

func (h *Handler) AddMedication(c echo.Context) error {
	var in MedicationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.AddMedication(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "success", Data: m})
}

func (h *Handler) DeleteMedication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		// Ids are always UUIDs, so anything else cannot exist.
		return echo.NewHTTPError(http.StatusNotFound, "Medication not found")
	}
	if err := h.svc.DeleteMedication(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "success"})
}

func (h *Handler) LogAdherence(c echo.Context) error {
	var event AdherenceEvent
	if err := c.Bind(&event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.LogAdherence(c.Request().Context(), event); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "success"})
}
