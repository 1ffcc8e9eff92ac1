package httpapi

import (
	"net/http"
)

// NewMux returns a mux with /healthz registered. A nil checker always
// reports ok.
func NewMux(checker HealthChecker) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, checker)
	return mux
}
