package feed

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Simplici0/dealfinder/internal/results"
	"github.com/Simplici0/dealfinder/internal/tco"
)

// Handler serves a fresh search from source as a Payload. Failures are
// answered with an error payload and status 500.
func Handler(source results.Feed, engine *tco.Engine, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("feed")

	return func(w http.ResponseWriter, r *http.Request) {
		batch, err := source.Search(r.Context())
		if err != nil {
			logger.Error("search failed", zap.Error(err))
			Write(w, http.StatusInternalServerError, ErrorPayload(err), logger)
			return
		}
		Write(w, http.StatusOK, NewPayload(batch, engine), logger)
	}
}

// Write encodes p as the JSON response body.
func Write(w http.ResponseWriter, status int, p Payload, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil && logger != nil {
		logger.Warn("write search payload", zap.Error(err))
	}
}
