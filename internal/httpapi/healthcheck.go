package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"thermograph/internal/utils"
)

// HealthChecker reports whether a dependency the server needs is reachable.
type HealthChecker interface {
	Check(ctx context.Context) error
}

type dbChecker struct {
	db *sql.DB
}

// NewDBChecker checks database connectivity with SELECT 1.
func NewDBChecker(db *sql.DB) HealthChecker {
	return &dbChecker{db: db}
}

func (c *dbChecker) Check(ctx context.Context) error {
	var ok int
	return c.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok)
}

type healthcheckerImpl struct {
	checker HealthChecker
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.checker != nil {
		if err := h.checker.Check(r.Context()); err != nil {
			slog.Error("health check failed", "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, checker HealthChecker) {
	h := &healthcheckerImpl{checker: checker}
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}
