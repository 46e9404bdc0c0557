package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"aqi-estimator/internal/config"
	"aqi-estimator/internal/metrics"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// LogHandler processes one decoded log message.
type LogHandler func(ctx context.Context, msg LogMessage) error

// LogSubscriber is what feature modules need to attach their handler.
type LogSubscriber interface {
	SetLogHandler(handler LogHandler)
}

// Subscriber receives sensor logs on cfg.MQTTTopic.
type Subscriber struct {
	*conn
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	handlerMu sync.RWMutex
	handler   LogHandler
}

func NewSubscriber(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) *Subscriber {
	if m == nil {
		m = metrics.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscriber{metrics: m, ctx: ctx, cancel: cancel}
	// Clean sessions drop subscriptions, so subscribe again on every connect.
	s.conn = newConn(cfg, cfg.MQTTClientID, logger, func() {
		if err := s.subscribe(); err != nil {
			logger.Error("mqtt subscribe failed", "topic", cfg.MQTTTopic, "error", err)
		}
	})
	return s
}

func (s *Subscriber) SetLogHandler(handler LogHandler) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

// Connect waits for the broker connection; the topic subscription is made by
// the on-connect callback.
func (s *Subscriber) Connect(ctx context.Context) error {
	return s.connect(ctx)
}

func (s *Subscriber) subscribe() error {
	topic := s.cfg.MQTTTopic
	token := s.client.Subscribe(topic, QoS, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if err := wait(token, "subscribe "+topic); err != nil {
		return err
	}
	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", QoS)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	msg, err := DecodeLogMessage(payload, s.cfg.MaxUploadBytes)
	if err != nil {
		s.metrics.MQTTMessagesTotal.WithLabelValues("rejected").Inc()
		attrs := []any{"topic", topic, "size", len(payload), "error", err}
		if !errors.Is(err, ErrPayloadTooLarge) && len(payload) <= 256 {
			attrs = append(attrs, "payload", string(payload))
		}
		s.logger.Warn("rejected mqtt log message", attrs...)
		return
	}

	s.handlerMu.RLock()
	handler := s.handler
	s.handlerMu.RUnlock()
	if handler == nil {
		s.logger.Warn("no log handler registered; dropping message", "topic", topic, "source", msg.Source)
		return
	}

	if err := handler(s.ctx, msg); err != nil {
		s.metrics.MQTTMessagesTotal.WithLabelValues("failed").Inc()
		s.logger.Error("log handler failed",
			"topic", topic,
			"source", msg.Source,
			"filename", msg.Filename,
			"error", err,
		)
		return
	}
	s.metrics.MQTTMessagesTotal.WithLabelValues("ok").Inc()
	s.logger.Debug("processed mqtt log message", "source", msg.Source, "filename", msg.Filename)
}

// Disconnect unsubscribes and closes the connection. Safe to call repeatedly.
func (s *Subscriber) Disconnect() {
	s.cancel()
	if s.client != nil && s.IsConnected() {
		s.client.Unsubscribe(s.cfg.MQTTTopic).WaitTimeout(2 * time.Second)
	}
	s.stop()
	s.logger.Info("mqtt subscriber disconnected")
}
