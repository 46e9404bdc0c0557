package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"aqi-estimator/internal/config"
)

// Publisher sends sensor log files to the ingestion topic, the way a field
// gateway would.
type Publisher struct {
	*conn
}

func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	return &Publisher{conn: newConn(cfg, cfg.MQTTClientID+"-publisher", logger, nil)}
}

func (p *Publisher) Connect(ctx context.Context) error {
	return p.connect(ctx)
}

// PublishLog publishes msg to cfg.MQTTTopic. SentAt defaults to now.
func (p *Publisher) PublishLog(ctx context.Context, msg LogMessage) error {
	if !p.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal log message: %w", err)
	}
	if limit := p.cfg.MaxUploadBytes; limit > 0 && int64(len(data)) > limit {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrPayloadTooLarge, len(data), limit)
	}

	topic := p.cfg.MQTTTopic
	token := p.client.Publish(topic, QoS, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		p.logger.Error("failed to publish log", "topic", topic, "error", err)
		return fmt.Errorf("publish log: %w", err)
	}

	p.logger.Debug("published log", "topic", topic, "source", msg.Source, "filename", msg.Filename, "size", len(data))
	return nil
}

func (p *Publisher) Disconnect() {
	p.stop()
	p.logger.Info("mqtt publisher disconnected")
}
