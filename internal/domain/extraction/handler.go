package extraction

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/SrinivasaPrasadGade/med-x/internal/platform/genai"
)

// maxImageBytes caps an uploaded prescription image.
const maxImageBytes = 10 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/analyze-note", h.AnalyzeNote)
	api.POST("/scan-prescription", h.ScanPrescription)
	api.POST("/check-interactions", h.CheckInteractions)
	api.POST("/generate-coaching", h.GenerateCoaching)
	api.POST("/de-identify", h.DeIdentify)
}

func (h *Handler) AnalyzeNote(c echo.Context) error {
	var req NoteAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.AnalyzeNote(c.Request().Context(), req)
	if err != nil {
		return httpError(err, "analyze note")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ScanPrescription(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to read upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to read upload")
	}
	if len(data) > maxImageBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image too large")
	}

	mime := strings.TrimSpace(fh.Header.Get(echo.HeaderContentType))
	if (mime == "" || mime == echo.MIMEOctetStream) && len(data) > 0 {
		mime = http.DetectContentType(data)
	}

	res, err := h.svc.ScanPrescription(c.Request().Context(), PrescriptionScanRequest{Image: data, MIMEType: mime})
	if err != nil {
		return httpError(err, "scan prescription")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) CheckInteractions(c echo.Context) error {
	var req InteractionCheckRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.CheckInteractions(c.Request().Context(), req)
	if err != nil {
		return httpError(err, "check interactions")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) GenerateCoaching(c echo.Context) error {
	var req CoachingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.GenerateCoaching(c.Request().Context(), req)
	if err != nil {
		return httpError(err, "generate coaching")
	}
	return c.JSON(http.StatusOK, res)
}

type deIdentifyResponse struct {
	DeIdentifiedText string `json:"de_identified_text"`
}

func (h *Handler) DeIdentify(c echo.Context) error {
	var req NoteAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return httpError(err, "de-identify note")
	}
	return c.JSON(http.StatusOK, deIdentifyResponse{DeIdentifiedText: DeIdentify(req.NoteText)})
}

// httpError maps pipeline failures to status codes.
func httpError(err error, op string) error {
	if errors.Is(err, ErrInvalidRequest) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	switch genai.KindOf(err) {
	case genai.KindQuotaExceeded:
		return echo.NewHTTPError(http.StatusTooManyRequests, "Quota exceeded: "+err.Error())
	case genai.KindInvalidInput:
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid image or request: "+err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Failed to "+op+": "+err.Error())
}
