package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Martig3/dathost-discord-scrimbot/internal/session"
)

func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// GetSession renders the current snapshot for dashboards and debugging.
func GetSession(sess *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := sess.State(r.Context())
		if err != nil {
			http.Error(w, "session unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(session.BuildSnapshot(view.Version, view.State))
	}
}

// matchEndBody is the slice of the game host's webhook payload the bot
// cares about. Unknown fields are ignored.
type matchEndBody struct {
	ID           string `json:"id"`
	GameServerID string `json:"game_server_id"`
	Finished     bool   `json:"finished"`
}

// MatchEnd receives the game host's match-end callback. The endpoint is
// best effort: after the auth check it always acknowledges, and failures
// announcing the result are only logged.
func MatchEnd(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.WebhookAuth == "" {
			http.Error(w, "webhook not configured", http.StatusNotFound)
			return
		}
		got := r.Header.Get("Authorization")
		if subtle.ConstantTimeCompare([]byte(got), []byte(d.WebhookAuth)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body matchEndBody
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
			d.Log.Warn("match-end payload unreadable", zap.Error(err))
		} else if body.Finished {
			text := "The match has finished. GGs all around."
			if _, err := d.Gateway.Send(r.Context(), d.Channel, text); err != nil {
				d.Log.Warn("match-end announce failed", zap.Error(err))
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
