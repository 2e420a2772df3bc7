package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const handshakeTimeout = 10 * time.Second

// Dial establishes a websocket connection to url and wraps it in a
// Channel.
func Dial(ctx context.Context, url string, logger zerolog.Logger) (*Channel, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	logger.Debug().Str("url", url).Msg("channel connected")
	return NewChannel(conn, logger), nil
}
