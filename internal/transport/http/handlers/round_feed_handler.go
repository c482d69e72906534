package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/subcheck/backend/internal/core/ports"
	"github.com/subcheck/backend/internal/infrastructure/logger"
)

// RoundFeedHandler streams one JSON event per round transition over a
// websocket connection.
type RoundFeedHandler struct {
	rounds ports.RoundService
	logger *logger.Logger
}

func NewRoundFeedHandler(rounds ports.RoundService, logger *logger.Logger) *RoundFeedHandler {
	return &RoundFeedHandler{
		rounds: rounds,
		logger: logger,
	}
}

func (h *RoundFeedHandler) Handle(conn *websocket.Conn) {
	events, cancel := h.rounds.Subscribe()
	defer cancel()

	h.logger.Infow("round_feed_subscribed", "remote", conn.RemoteAddr().String())

	// Drain reads so we notice the peer closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Warnw("round_feed_write_failed", "error", err)
				return
			}
		case <-closed:
			h.logger.Infow("round_feed_closed", "remote", conn.RemoteAddr().String())
			return
		}
	}
}
