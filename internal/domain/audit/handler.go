package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type Handler struct {
	sink Sink
}

func NewHandler(sink Sink) *Handler {
	return &Handler{sink: sink}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/audit-log", h.ListEntries)
}

// ListEntries returns the newest entries first as a bare JSON array.
func (h *Handler) ListEntries(c echo.Context) error {
	limit := defaultListLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	entries, err := h.sink.List(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read audit log")
	}
	return c.JSON(http.StatusOK, entries)
}
