package service

import (
	"context"

	"aqi-estimator/internal/mqtt"
)

// Register attaches the log handler to an MQTT subscriber. Each message is
// processed like an upload; its source is the publishing gateway.
func (s *Service) Register(subscriber mqtt.LogSubscriber) {
	subscriber.SetLogHandler(func(ctx context.Context, msg mqtt.LogMessage) error {
		s.logger.DebugContext(ctx, "processing mqtt log",
			"source", msg.Source,
			"filename", msg.Filename,
			"sent_at", msg.SentAt,
		)
		_, err := s.Process(ctx, Input{
			Channel:  ChannelMQTT,
			Source:   msg.Source,
			Filename: msg.Filename,
			Content:  msg.Content,
		})
		return err
	})
}
