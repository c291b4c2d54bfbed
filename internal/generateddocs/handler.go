package generateddocs

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"cv-tailor/internal/shared/server/middleware"
	"cv-tailor/internal/shared/server/respond"
)

// Handler exposes the generation history.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches history routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/generations", h.list)
}

type generationItem struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	CreatedAt      time.Time `json:"created_at"`
	JobDescription string    `json:"job_description"`
	Language       string    `json:"language"`
	Template       string    `json:"template"`
	HasCVPDF       bool      `json:"has_cv_pdf"`
	HasLetterPDF   bool      `json:"has_letter_pdf"`
}

type listResponse struct {
	Items []generationItem `json:"items"`
}

func (h *Handler) list(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be between 1 and 50", nil)
			return
		}
		limit = n
	}

	records, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "identity required", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list generations", nil)
		return
	}

	items := make([]generationItem, 0, len(records))
	for _, rec := range records {
		items = append(items, generationItem{
			ID:             rec.ID,
			SessionID:      rec.SessionID,
			CreatedAt:      rec.CreatedAt,
			JobDescription: rec.JobDescription,
			Language:       rec.Language,
			Template:       rec.Template,
			HasCVPDF:       rec.HasCV(),
			HasLetterPDF:   rec.HasLetter(),
		})
	}
	respond.OK(c, listResponse{Items: items})
}
