// Package studybuddy runs the conversational helper over a websocket. Each
// inbound text frame is one learner question; each outbound frame is the
// generated answer. The connection is stateless on our side — conversation
// memory, if any, lives with the generation service.
package studybuddy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/learnquest/learnquest/internal/generator"
)

const (
	// A generation round-trip including retries can take a while.
	replyTimeout = 90 * time.Second

	fallbackReply = "Sorry, I couldn't think of an answer just now. Please try asking again."
)

// Handler upgrades requests to websockets and relays questions to the
// generation service.
type Handler struct {
	gen generator.Client
}

// NewHandler creates a study buddy websocket handler.
func NewHandler(gen generator.Client) *Handler {
	return &Handler{gen: gen}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	log := slog.With("remote", r.RemoteAddr)
	log.Info("study buddy session started")

	for {
		typ, data, err := conn.Read(r.Context())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				log.Info("study buddy session closed")
			} else if !errors.Is(err, context.Canceled) {
				log.Warn("study buddy read failed", "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		question := strings.TrimSpace(string(data))
		if question == "" {
			continue
		}

		reply := h.answer(r.Context(), question, log)
		if err := conn.Write(r.Context(), websocket.MessageText, []byte(reply)); err != nil {
			log.Warn("study buddy write failed", "error", err)
			return
		}
	}
}

// answer never fails: a generation error becomes an apologetic reply so the
// learner's session keeps going.
func (h *Handler) answer(ctx context.Context, question string, log *slog.Logger) string {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	reply, err := h.gen.Generate(ctx, question, generator.KindStudyBuddy)
	if err != nil {
		log.Warn("study buddy generation failed", "error", err)
		return fallbackReply
	}
	return reply
}
