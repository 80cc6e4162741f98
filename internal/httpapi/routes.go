// Package httpapi is the small operational surface next to the Discord
// bot: health, a session view, the watch feed and the match-end webhook.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Martig3/dathost-discord-scrimbot/internal/chat"
	"github.com/Martig3/dathost-discord-scrimbot/internal/session"
	"github.com/Martig3/dathost-discord-scrimbot/internal/ws"
)

type Deps struct {
	Session *session.Session
	Gateway chat.Gateway

	// Channel receives the match-end announcement.
	Channel string

	// WebhookAuth is the Authorization value the game host was told to
	// echo back. Empty disables the webhook endpoint.
	WebhookAuth string

	Log *zap.Logger
}

func Routes(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Get("/session", GetSession(d.Session))
	r.Get("/session/watch", ws.Handler(d.Session, d.Log))
	r.Post("/webhooks/match-end", MatchEnd(d))
	return r
}
