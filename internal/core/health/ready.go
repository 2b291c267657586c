package health

import (
	"encoding/json"
	"net/http"
)

// ReadinessReporter reports whether the service can answer queries and
// which sources it has loaded.
type ReadinessReporter interface {
	Readiness() (ready bool, loaded []string)
}

func Readiness(rr ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Status string   `json:"status"`
			Loaded []string `json:"loaded,omitempty"`
		}
		ready, loaded := rr.Readiness()
		out := resp{Status: "not_ready", Loaded: loaded}
		if ready {
			out.Status = "ready"
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
