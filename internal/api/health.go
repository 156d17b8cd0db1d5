package api

import (
	"context"
	"net/http"
	"time"

	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

// Pinger reports database liveness. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter reports the vector index size. *knowledge.Store satisfies it.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// health is the liveness probe. Returns 200 with {"status":"ok"}.
func health(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

// readiness reports whether the service can answer questions: the database
// responds to a ping and the vector index is countable.
func readiness(pinger Pinger, counter Counter, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if pinger != nil {
			if err := pinger.Ping(ctx); err != nil {
				logger.Warn("readiness: database ping failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"reason": "database unreachable",
				}, logger)
				return
			}
		}

		body := map[string]any{"status": "ready"}
		if counter != nil {
			count, err := counter.Count(ctx)
			if err != nil {
				logger.Warn("readiness: chunk count failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"reason": "vector index unreachable",
				}, logger)
				return
			}
			body["chunks"] = count
		}

		writeJSON(w, http.StatusOK, body, logger)
	}
}
