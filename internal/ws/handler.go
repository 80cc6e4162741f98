// Package ws streams session snapshots to watch clients over a
// websocket. The feed is one-way; anything a client writes is discarded.
package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/Martig3/dathost-discord-scrimbot/internal/session"
	"github.com/Martig3/dathost-discord-scrimbot/pkg/types"
)

const writeTimeout = 3 * time.Second

// Handler upgrades the request and forwards every snapshot broadcast
// until the client goes away or the session drops it for being slow.
func Handler(sess *session.Session, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.Snapshot, 8)
		clientID := randID()

		sess.Watch(clientID, out)
		defer sess.Unwatch(clientID)

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{Type: types.MsgSnapshot, Snapshot: &snap}
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Warn("snapshot encode failed", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
			// Session closed the outbox: either shutdown or this client
			// fell too far behind.
			conn.Close(websocket.StatusGoingAway, "feed closed")
		}()

		// Drain the read side so pings and closes are processed. The
		// unwatch in the defer tears the feed down.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}
}

func randID() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
