package maintenance

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"catalog-api/internal/observability"
)

// RefreshTokenCleaner drops stored refresh tokens whose expiry is before now.
type RefreshTokenCleaner interface {
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time, batchSize int) (int64, error)
}

type CleanupHandler struct {
	cleaner    RefreshTokenCleaner
	logger     *observability.Logger
	cronSecret string
	batchSize  int
	now        func() time.Time
}

func NewCleanupHandler(cleaner RefreshTokenCleaner, logger *observability.Logger, cronSecret string, batchSize int) *CleanupHandler {
	return &CleanupHandler{
		cleaner:    cleaner,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// Handle is routed for GET and POST only.
func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
		return
	}

	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") ||
		subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(h.cronSecret)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
		return
	}

	cleared, err := h.cleaner.ClearExpiredRefreshTokens(r.Context(), h.now().UTC(), h.batchSize)
	if err != nil {
		observability.CaptureError(err)
		h.logger.Error("refresh_cleanup_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Cleanup failed"})
		return
	}

	h.logger.Info("refresh_cleanup_completed", map[string]any{"cleared_refresh_tokens": cleared})

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": map[string]int64{"clearedRefreshTokens": cleared},
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
