package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/wiki-crawler/internal/crawler"
)

const (
	defaultOutcomeLimit = 100
	maxOutcomeLimit     = 1000
	manifestTimeout     = 3 * time.Second
)

// OutcomeRepository reads recorded outcomes. *manifest.Store satisfies it.
type OutcomeRepository interface {
	Outcomes(ctx context.Context, crawlID string) ([]crawler.OutcomeRecord, error)
	Summary(ctx context.Context, crawlID string) (map[crawler.Outcome]int, error)
}

// OutcomeHandler exposes read-only manifest endpoints.
type OutcomeHandler struct {
	repo    OutcomeRepository
	timeout time.Duration
	logger  *zap.Logger
}

// NewOutcomeHandler wires the repository and logger.
func NewOutcomeHandler(repo OutcomeRepository, logger *zap.Logger) *OutcomeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutcomeHandler{
		repo:    repo,
		timeout: manifestTimeout,
		logger:  logger,
	}
}

// ListOutcomes handles GET /v1/crawls/{crawl_id}/outcomes?outcome=&limit=&offset=.
// It returns {"outcomes": [...]} on success, 400 for invalid filters, 503 when
// no manifest is configured, or 500 if the query fails.
func (h *OutcomeHandler) ListOutcomes(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "manifest unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit, offset, err := parseLimitOffset(r, defaultOutcomeLimit, maxOutcomeLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := parseOutcome(r.URL.Query().Get("outcome"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	crawlID := chi.URLParam(r, "crawl_id")
	records, err := h.repo.Outcomes(ctx, crawlID)
	if err != nil {
		h.logger.Error("list outcomes failed", zap.String("crawl_id", crawlID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list outcomes")
		return
	}

	matched := make([]outcomeDTO, 0, limit)
	skipped := 0
	for _, rec := range records {
		if filter != "" && rec.Outcome != filter {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(matched) == limit {
			break
		}
		matched = append(matched, toOutcomeDTO(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": matched})
}

// GetSummary handles GET /v1/crawls/{crawl_id}/summary.
func (h *OutcomeHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "manifest unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	crawlID := chi.URLParam(r, "crawl_id")
	counts, err := h.repo.Summary(ctx, crawlID)
	if err != nil {
		h.logger.Error("summarize outcomes failed", zap.String("crawl_id", crawlID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to summarize outcomes")
		return
	}
	if len(counts) == 0 {
		writeError(w, http.StatusNotFound, "crawl not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"crawl_id": crawlID, "outcomes": counts})
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if val > maxLimit {
			val = maxLimit
		}
		limit = val
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

func parseOutcome(input string) (crawler.Outcome, error) {
	if input == "" {
		return "", nil
	}
	outcome := crawler.Outcome(input)
	switch outcome {
	case crawler.OutcomePersisted, crawler.OutcomeDuplicate, crawler.OutcomeFetchFailed,
		crawler.OutcomeTitleMissing, crawler.OutcomePersistFailed, crawler.OutcomeDiscarded:
		return outcome, nil
	default:
		return "", errors.New("invalid outcome")
	}
}

type outcomeDTO struct {
	Path        string    `json:"path"`
	Outcome     string    `json:"outcome"`
	Title       string    `json:"title,omitempty"`
	Location    string    `json:"location,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	StatusCode  int       `json:"status_code,omitempty"`
	Attempts    int       `json:"attempts,omitempty"`
	Error       string    `json:"error,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func toOutcomeDTO(rec crawler.OutcomeRecord) outcomeDTO {
	return outcomeDTO{
		Path:        rec.Path,
		Outcome:     string(rec.Outcome),
		Title:       rec.Title,
		Location:    rec.Location,
		ContentHash: rec.ContentHash,
		StatusCode:  rec.StatusCode,
		Attempts:    rec.Attempts,
		Error:       rec.Error,
		RecordedAt:  rec.RecordedAt,
	}
}
