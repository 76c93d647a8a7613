package notifications

import (
	"context"
)

type amqpPublisher interface {
	Publish(ctx context.Context, routingKey string, headers map[string]any, body any) error
}

type topicPublisher interface {
	PublishJSON(ctx context.Context, topic string, attributes map[string]string, payload any) (string, error)
}

// AMQPMailer queues alert emails on a RabbitMQ topic exchange.
type AMQPMailer struct {
	publisher  amqpPublisher
	routingKey string
}

func NewAMQPMailer(publisher amqpPublisher, routingKey string) *AMQPMailer {
	return &AMQPMailer{publisher: publisher, routingKey: routingKey}
}

func (m *AMQPMailer) SendAlert(ctx context.Context, email AlertEmail) error {
	return m.publisher.Publish(ctx, m.routingKey, map[string]any{"kind": "payout_alert"}, email)
}

// PubSubMailer queues alert emails on a Pub/Sub topic.
type PubSubMailer struct {
	publisher topicPublisher
	topic     string
}

func NewPubSubMailer(publisher topicPublisher, topic string) *PubSubMailer {
	return &PubSubMailer{publisher: publisher, topic: topic}
}

func (m *PubSubMailer) SendAlert(ctx context.Context, email AlertEmail) error {
	_, err := m.publisher.PublishJSON(ctx, m.topic, map[string]string{"kind": "payout_alert"}, email)
	return err
}
