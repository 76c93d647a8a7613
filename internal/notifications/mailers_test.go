package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAMQP struct {
	routingKey string
	headers    map[string]any
	body       any
}

func (r *recordingAMQP) Publish(ctx context.Context, routingKey string, headers map[string]any, body any) error {
	r.routingKey, r.headers, r.body = routingKey, headers, body
	return nil
}

type recordingTopic struct {
	topic string
	attrs map[string]string
	body  any
}

func (r *recordingTopic) PublishJSON(ctx context.Context, topic string, attributes map[string]string, payload any) (string, error) {
	r.topic, r.attrs, r.body = topic, attributes, payload
	return "msg-1", nil
}

func TestAMQPMailerPublishesToRoutingKey(t *testing.T) {
	pub := &recordingAMQP{}
	mailer := NewAMQPMailer(pub, "email.payout_alert")
	email := AlertEmail{To: "ops@org.test", Subject: "held"}

	require.NoError(t, mailer.SendAlert(context.Background(), email))
	assert.Equal(t, "email.payout_alert", pub.routingKey)
	assert.Equal(t, "payout_alert", pub.headers["kind"])
	assert.Equal(t, email, pub.body)
}

func TestPubSubMailerPublishesToTopic(t *testing.T) {
	pub := &recordingTopic{}
	mailer := NewPubSubMailer(pub, "payout-alert-emails")
	email := AlertEmail{To: "ops@org.test", Subject: "held"}

	require.NoError(t, mailer.SendAlert(context.Background(), email))
	assert.Equal(t, "payout-alert-emails", pub.topic)
	assert.Equal(t, "payout_alert", pub.attrs["kind"])
	assert.Equal(t, email, pub.body)
}
