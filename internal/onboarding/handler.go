package onboarding

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cv-tailor/internal/fetch"
	"cv-tailor/internal/normalize"
	"cv-tailor/internal/profile"
	"cv-tailor/internal/shared/server/middleware"
	"cv-tailor/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires profile routes to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches profile routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/profile/import", h.importFile)
	rg.POST("/profile/import-url", h.importURL)
	rg.GET("/profile", h.get)
	rg.PUT("/profile", h.update)
}

type profileResponse struct {
	Profile            profile.Profile `json:"profile"`
	AdditionalURLs     []string        `json:"additional_urls"`
	PersonalSummary    string          `json:"personal_summary"`
	OnboardingComplete bool            `json:"onboarding_complete"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func toResponse(s profile.StoredProfile) profileResponse {
	urls := s.AdditionalURLs
	if urls == nil {
		urls = []string{}
	}
	return profileResponse{
		Profile:            s.Profile.Normalize(),
		AdditionalURLs:     urls,
		PersonalSummary:    s.PersonalSummary,
		OnboardingComplete: s.OnboardingComplete,
		UpdatedAt:          s.UpdatedAt,
	}
}

func (h *Handler) importFile(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	stored, err := h.Svc.Import(c.Request.Context(), userID, fileHeader.Filename, data)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(stored))
}

type importURLRequest struct {
	URL string `json:"url"`
}

func (h *Handler) importURL(c *gin.Context) {
	var req importURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	stored, err := h.Svc.ImportURL(c.Request.Context(), middleware.UserIDFromContext(c), req.URL)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(stored))
}

func (h *Handler) get(c *gin.Context) {
	stored, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(stored))
}

func (h *Handler) update(c *gin.Context) {
	var req Update
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	stored, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(stored))
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, normalize.ErrInputFormat),
		errors.Is(err, normalize.ErrExtractionEmpty),
		errors.Is(err, normalize.ErrUnsupportedFormat):
		respond.Error(c, http.StatusBadRequest, "invalid_document", err.Error(), nil)
	case errors.Is(err, fetch.ErrNotLinkedInURL):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, fetch.ErrLinkedInBlocked):
		respond.Error(c, http.StatusUnprocessableEntity, "linkedin_blocked", err.Error(), nil)
	case errors.Is(err, profile.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, profile.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "No profile imported yet", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "profile request failed", nil)
	}
}
