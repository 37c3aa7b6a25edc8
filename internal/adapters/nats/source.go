package natsadapter

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/ports"
)

// PositionSource implements ports.PositionSource over a plain NATS
// connection. Each session gets its own per-user subscription so fixes
// fan out without JetStream consumer contention.
type PositionSource struct {
	conn *nats.Conn
}

// NewPositionSource wraps an existing connection.
func NewPositionSource(conn *nats.Conn) *PositionSource {
	return &PositionSource{conn: conn}
}

// Subscribe delivers fixes for a single user to handler. Malformed
// payloads are dropped.
func (s *PositionSource) Subscribe(ctx context.Context, userID string, handler func(fix domain.PositionFix)) (ports.Subscription, error) {
	sub, err := s.conn.Subscribe(fixSubjectPrefix+userID, func(msg *nats.Msg) {
		var fix domain.PositionFix
		if err := json.Unmarshal(msg.Data, &fix); err != nil {
			return
		}
		handler(fix)
	})
	if err != nil {
		return nil, err
	}
	return natsSubscription{sub}, nil
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (n natsSubscription) Unsubscribe() error {
	return n.sub.Unsubscribe()
}
