package cvgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cv-tailor/internal/fetch"
	"cv-tailor/internal/profile"
	"cv-tailor/internal/sessions"
	"cv-tailor/internal/shared/server/middleware"
	"cv-tailor/internal/shared/server/respond"
)

// ProfileSource supplies the stored profile and preferences of a user.
type ProfileSource interface {
	GetByUser(ctx context.Context, userID string) (profile.StoredProfile, error)
}

// Handler exposes generation, session and fetch routes.
type Handler struct {
	Svc      *Service
	Profiles ProfileSource
}

// NewHandler constructs a Handler. profiles may be nil, in which case every
// generate request must carry its own profile.
func NewHandler(svc *Service, profiles ProfileSource) *Handler {
	return &Handler{Svc: svc, Profiles: profiles}
}

// RegisterRoutes attaches generation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate", h.generate)
	rg.GET("/sessions/:id", h.getSession)
	rg.GET("/sessions/:id/cv.pdf", h.cvPDF)
	rg.GET("/sessions/:id/letter.pdf", h.letterPDF)
	rg.POST("/fetch/job-description", h.fetchJobDescription)
	rg.POST("/fetch/additional-urls", h.fetchAdditionalURLs)
}

type generateRequest struct {
	Profile               *profile.Profile  `json:"profile"`
	JobDescription        string            `json:"job_description"`
	PersonalSummary       *string           `json:"personal_summary"`
	AdditionalURLs        []string          `json:"additional_urls"`
	AdditionalURLsContent map[string]string `json:"additional_urls_content"`
	Language              string            `json:"language"`
	Template              string            `json:"template"`
}

var supportedLanguages = map[string]struct{}{"en": {}, "de": {}, "fr": {}}

func (h *Handler) generate(c *gin.Context) {
	var body generateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if len(body.AdditionalURLs) > fetch.MaxURLs {
		respond.Error(c, http.StatusBadRequest, "validation_error",
			fmt.Sprintf("at most %d additional URLs are allowed", fetch.MaxURLs), nil)
		return
	}
	lang := strings.ToLower(strings.TrimSpace(body.Language))
	if lang != "" {
		if _, ok := supportedLanguages[lang]; !ok {
			respond.Error(c, http.StatusBadRequest, "validation_error", "language must be one of en, de, fr", nil)
			return
		}
	}

	userID := middleware.UserIDFromContext(c)
	req, err := h.buildRequest(c.Request.Context(), userID, body)
	if err != nil {
		writeError(c, err)
		return
	}
	req.Language = lang

	res, err := h.Svc.Generate(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.SetSessionID(c, res.SessionID)
	respond.OK(c, res)
}

// buildRequest fills the profile and preferences the client left out from the stored profile.
func (h *Handler) buildRequest(ctx context.Context, userID string, body generateRequest) (Request, error) {
	req := Request{
		JobDescription:        body.JobDescription,
		AdditionalURLs:        body.AdditionalURLs,
		AdditionalURLsContent: body.AdditionalURLsContent,
		Template:              body.Template,
	}
	if body.PersonalSummary != nil {
		req.PersonalSummary = *body.PersonalSummary
	}
	if body.Profile != nil {
		req.Profile = body.Profile.Normalize()
	}

	needStored := body.Profile == nil || body.PersonalSummary == nil || body.AdditionalURLs == nil
	if !needStored || h.Profiles == nil || userID == "" {
		if body.Profile == nil {
			return Request{}, fmt.Errorf("%w: profile is required", ErrInvalidInput)
		}
		return req, nil
	}

	stored, err := h.Profiles.GetByUser(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, profile.ErrNotFound):
		if body.Profile == nil {
			return Request{}, fmt.Errorf("%w: import a profile first", ErrInvalidInput)
		}
		return req, nil
	default:
		return Request{}, err
	}

	if body.Profile == nil {
		req.Profile = stored.Profile.Normalize()
	}
	if body.PersonalSummary == nil {
		req.PersonalSummary = stored.PersonalSummary
	}
	if body.AdditionalURLs == nil {
		req.AdditionalURLs = stored.AdditionalURLs
	}
	return req, nil
}

type sessionResponse struct {
	SessionID          string               `json:"session_id"`
	CreatedAt          time.Time            `json:"created_at"`
	HasCVPDF           bool                 `json:"has_cv_pdf"`
	HasLetterPDF       bool                 `json:"has_letter_pdf"`
	Profile            profile.Profile      `json:"profile"`
	TailoredSummary    string               `json:"tailored_summary"`
	TailoredExperience []profile.Experience `json:"tailored_experience"`
	MotivationLetter   string               `json:"motivation_letter"`
	Keywords           []string             `json:"keywords"`
	Language           string               `json:"language"`
	Template           string               `json:"template"`
}

func (h *Handler) getSession(c *gin.Context) {
	id := c.Param("id")
	middleware.SetSessionID(c, id)
	sess, err := h.Svc.GetSession(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	experience := sess.TailoredExperience
	if experience == nil {
		experience = []profile.Experience{}
	}
	keywords := sess.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	respond.OK(c, sessionResponse{
		SessionID:          sess.ID,
		CreatedAt:          sess.CreatedAt,
		HasCVPDF:           sess.HasCVPDF(),
		HasLetterPDF:       sess.HasLetterPDF(),
		Profile:            sess.Profile.Normalize(),
		TailoredSummary:    sess.TailoredSummary,
		TailoredExperience: experience,
		MotivationLetter:   sess.MotivationLetter,
		Keywords:           keywords,
		Language:           sess.Language,
		Template:           sess.Template,
	})
}

func (h *Handler) cvPDF(c *gin.Context) {
	h.servePDF(c, "cv", h.Svc.CVPDF)
}

func (h *Handler) letterPDF(c *gin.Context) {
	h.servePDF(c, "motivation_letter", h.Svc.LetterPDF)
}

func (h *Handler) servePDF(c *gin.Context, prefix string, load func(ctx context.Context, userID, id string) ([]byte, error)) {
	id := c.Param("id")
	middleware.SetSessionID(c, id)
	data, err := load(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Attachment(c, fmt.Sprintf("%s_%s.pdf", prefix, shortID(id)), "application/pdf", data)
}

type fetchJobRequest struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

type fetchJobResponse struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

func (h *Handler) fetchJobDescription(c *gin.Context) {
	var req fetchJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	url := strings.TrimSpace(req.URL)
	switch {
	case url != "":
		if !fetch.IsURL(url) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "url must be http(s)", nil)
			return
		}
		respond.OK(c, fetchJobResponse{Text: h.Svc.Fetcher.FetchText(c.Request.Context(), url), Source: "url"})
	case strings.TrimSpace(req.Text) != "":
		respond.OK(c, fetchJobResponse{Text: strings.TrimSpace(req.Text), Source: "text"})
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "provide url or text", nil)
	}
}

type fetchURLsRequest struct {
	URLs []string `json:"urls"`
}

type fetchURLsResponse struct {
	Contents map[string]string `json:"contents"`
}

func (h *Handler) fetchAdditionalURLs(c *gin.Context) {
	var req fetchURLsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	contents := h.Svc.Fetcher.FetchMany(c.Request.Context(), req.URLs)
	if contents == nil {
		contents = map[string]string{}
	}
	respond.OK(c, fetchURLsResponse{Contents: contents})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrAIUnavailable):
		respond.Error(c, http.StatusServiceUnavailable, "ai_unavailable", "OPENAI_API_KEY is not configured", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, sessions.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Session not found", nil)
	case errors.Is(err, ErrPDFNotReady):
		respond.Error(c, http.StatusConflict, "pdf_not_ready", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusGatewayTimeout, "timeout", "generation timed out", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Generation failed. Please try again or simplify the profile.", nil)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
