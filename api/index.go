package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"catalog-api/internal/app"
	"catalog-api/internal/config"
	"catalog-api/internal/observability"
)

var (
	initOnce   sync.Once
	apiRuntime *app.Runtime
	initErr    error
)

// Handler is the serverless entrypoint; the runtime is built on the first request.
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(func() {
		var cfg *config.Config
		cfg, initErr = config.Load()
		if initErr != nil {
			observability.NewLogger().Error("load_config_failed", map[string]any{"error": initErr.Error()})
			return
		}
		apiRuntime, initErr = app.Build(cfg)
		if initErr != nil {
			observability.NewLogger().Error("bootstrap_failed", map[string]any{"error": initErr.Error()})
		}
	})

	if initErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "application bootstrap failed"})
		return
	}

	apiRuntime.Handler.ServeHTTP(w, r)
}
