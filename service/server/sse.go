package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/solagg/service/metrics"
	natspkg "github.com/brojonat/solagg/service/nats"
)

// EventSource delivers newly stored transactions. *nats.Subscriber satisfies it.
type EventSource interface {
	Subscribe(ctx context.Context, wallet string, fn func(*natspkg.TransactionEvent)) error
}

// sseKeepalive is how often a comment is written to idle streams.
var sseKeepalive = 10 * time.Second

// handleStreamTransactions streams newly stored transactions as Server-Sent Events.
// Without an address path parameter every tracked wallet is streamed.
func handleStreamTransactions(events EventSource, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		address := r.PathValue("address")
		walletDesc := address
		if address == "" {
			walletDesc = "all"
		}

		// Streams outlive the server's write timeout.
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flush := func() {
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}

		msgs := make(chan *natspkg.TransactionEvent, 10)
		err := events.Subscribe(ctx, address, func(e *natspkg.TransactionEvent) {
			select {
			case msgs <- e:
			case <-ctx.Done():
			}
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to subscribe", "wallet", walletDesc, "error", err)
			fmt.Fprintf(w, "event: error\ndata: {\"error\": \"failed to subscribe\"}\n\n")
			flush()
			return
		}

		m.RecordSSEConnectionChange(walletDesc, 1)
		defer m.RecordSSEConnectionChange(walletDesc, -1)

		logger.DebugContext(ctx, "SSE client connected",
			"wallet", walletDesc,
			"remote_addr", r.RemoteAddr,
		)

		fmt.Fprintf(w, "event: connected\ndata: {\"wallet\":%q}\n\n", walletDesc)
		flush()

		keepalive := time.NewTicker(sseKeepalive)
		defer keepalive.Stop()

		for {
			select {
			case <-keepalive.C:
				fmt.Fprintf(w, ": keepalive\n\n")
				flush()

			case event := <-msgs:
				data, err := json.Marshal(event)
				if err != nil {
					logger.WarnContext(ctx, "failed to marshal event", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: transaction\ndata: %s\n\n", data)
				flush()
				m.RecordSSEEventSent(walletDesc, "transaction")

			case <-ctx.Done():
				logger.DebugContext(ctx, "SSE client disconnected",
					"wallet", walletDesc,
					"remote_addr", r.RemoteAddr,
				)
				return
			}
		}
	})
}
