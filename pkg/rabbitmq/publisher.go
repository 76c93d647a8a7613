package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/rabbitmq/amqp091-go"

	"github.com/angelmondragon/payouts-backend/pkg/config"
	"github.com/angelmondragon/payouts-backend/pkg/logger"
)

var errExchangeRequired = errors.New("rabbitmq exchange is required")

// Publisher sends JSON messages to a durable topic exchange.
type Publisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string

	mu sync.Mutex
}

// NewPublisher dials the broker and declares the configured exchange.
func NewPublisher(ctx context.Context, cfg config.RabbitMQConfig, logg *logger.Logger) (*Publisher, error) {
	cleanURL, err := sanitizeAMQPURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid rabbitmq url: %w", err)
	}
	exchange := strings.TrimSpace(cfg.Exchange)
	if exchange == "" {
		return nil, errExchangeRequired
	}

	conn, err := amqp091.Dial(cleanURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "exchange", exchange), "rabbitmq publisher initialized")
	}

	return &Publisher{conn: conn, channel: channel, exchange: exchange}, nil
}

// Publish marshals body and publishes it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, routingKey string, headers map[string]any, body any) error {
	if p == nil || p.channel == nil {
		return errors.New("rabbitmq publisher not initialized")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal rabbitmq payload: %w", err)
	}

	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Headers:      amqp091.Table(headers),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s/%s: %w", p.exchange, routingKey, err)
	}
	return nil
}

// Close gracefully closes the channel and connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	if clean == "" {
		return "", errors.New("amqp url is required")
	}
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
