// internal/adapter/bus/nats.go

package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"stagemap/internal/domain/messaging"
)

// Config contains NATS connection settings
type Config struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	SubjectPrefix  string
}

// Connect opens a NATS connection that logs disconnects and reconnects
func Connect(cfg Config, logger *zap.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("stagemap"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("error connecting to NATS: %w", err)
	}
	return nc, nil
}

// NATSBus publishes and subscribes to domain notifications over NATS
type NATSBus struct {
	conn   *nats.Conn
	topics messaging.Topics
	logger *zap.Logger
}

// NewNATSBus creates a bus over an open connection
func NewNATSBus(conn *nats.Conn, prefix string, logger *zap.Logger) *NATSBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSBus{
		conn:   conn,
		topics: messaging.Topics{Prefix: prefix},
		logger: logger,
	}
}

// PublishEventChange announces a created or updated event
func (b *NATSBus) PublishEventChange(_ context.Context, change messaging.EventChange) error {
	return b.publish(b.topics.EventChange(change.Kind), change)
}

// PublishStageStatus announces the current status of a stage
func (b *NATSBus) PublishStageStatus(_ context.Context, update messaging.StageStatusUpdate) error {
	return b.publish(b.topics.StageStatus(update.ID), update)
}

// SubscribeStageStatus calls handler with every status update for one stage.
// Undecodable messages are logged and dropped.
func (b *NATSBus) SubscribeStageStatus(subsectionID string, handler func(messaging.StageStatusUpdate)) (messaging.Subscription, error) {
	subject := b.topics.StageStatus(subsectionID)

	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		var update messaging.StageStatusUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			b.logger.Warn("dropping malformed stage status", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		handler(update)
	})
	if err != nil {
		return nil, fmt.Errorf("error subscribing to %s: %w", subject, err)
	}
	return sub, nil
}

func (b *NATSBus) publish(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling %s payload: %w", subject, err)
	}
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("error publishing to %s: %w", subject, err)
	}
	return nil
}
