package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/realtime"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// StreamHandler pushes incident change events to dashboard clients over
// server-sent events.
type StreamHandler struct {
	feed   *realtime.Feed
	logger *zap.Logger
}

func NewStreamHandler(feed *realtime.Feed, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{feed: feed, logger: logger}
}

func (h *StreamHandler) Stream(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	sub := h.feed.Subscribe()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Close()

		keepalive := time.NewTicker(25 * time.Second)
		defer keepalive.Stop()

		for {
			select {
			case event, ok := <-sub.Events:
				if !ok {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, payload)
				if err := w.Flush(); err != nil {
					// Client went away.
					return
				}
			case <-keepalive.C:
				fmt.Fprint(w, ": keepalive\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}
