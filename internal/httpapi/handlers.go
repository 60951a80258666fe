package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/DoyleJ11/codenames-client/internal/view"
)

// ViewSource is satisfied by *client.Client.
type ViewSource interface {
	View(ctx context.Context) (view.View, error)
}

// GetView serves the role-scoped view only; raw card types never leave the process.
func GetView(src ViewSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := src.View(r.Context())
		if err != nil {
			http.Error(w, "session unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(v)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
