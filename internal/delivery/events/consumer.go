package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/cinescope/movie_reviewer/internal/config"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
)

// Consumer handles consuming events from NATS
type Consumer struct {
	nc     *nats.Conn
	logger *logger.Logger
	sub    *nats.Subscription
}

// NewConsumer creates a new NATS consumer
func NewConsumer(cfg *config.Config, log *logger.Logger) (*Consumer, error) {
	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Infof("Connected to NATS at %s", cfg.NATS.URL)

	return &Consumer{
		nc:     nc,
		logger: log,
	}, nil
}

// Subscribe subscribes to a NATS subject and processes messages
func (c *Consumer) Subscribe(subject string, handler func(data []byte) error) error {
	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		c.logger.Debugf("Received message on subject %s", subject)

		if err := handler(msg.Data); err != nil {
			c.logger.Errorf(err, "Failed to handle message on subject %s", subject)
		}
	})

	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	c.sub = sub
	c.logger.Infof("Subscribed to NATS subject: %s", subject)
	return nil
}

// Close closes the NATS connection
func (c *Consumer) Close() {
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			c.logger.Warnf("Failed to unsubscribe from NATS: %v", err)
		}
	}
	if c.nc != nil {
		c.nc.Close()
		c.logger.Info("NATS consumer connection closed")
	}
}

// NotificationHandler creates a handler that logs review events as user
// notifications, for the standalone notifier binary.
func NotificationHandler(log *logger.Logger) func(data []byte) error {
	return func(data []byte) error {
		var event struct {
			EventType string `json:"event_type"`
			MovieID   string `json:"movie_id"`
			Review    *struct {
				ID     string  `json:"review_id"`
				UserID *string `json:"user_id"`
				Rating int     `json:"rating"`
			} `json:"review"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			log.Error("Failed to unmarshal event", err)
			return err
		}

		fields := map[string]interface{}{
			"event_type": event.EventType,
			"movie_id":   event.MovieID,
		}
		if event.Review != nil {
			fields["review_id"] = event.Review.ID
			fields["rating"] = event.Review.Rating
			if event.Review.UserID != nil {
				fields["user_id"] = *event.Review.UserID
			}
		}
		log.WithFields(fields).Info("Review event")
		return nil
	}
}
