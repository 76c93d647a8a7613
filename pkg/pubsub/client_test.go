package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/payouts-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "proj-1"}

	cases := map[string]string{
		"payout-alert-emails":                   "projects/proj-1/topics/payout-alert-emails",
		"  payout-alert-emails ":                "projects/proj-1/topics/payout-alert-emails",
		"projects/other/topics/already-qualify": "projects/other/topics/already-qualify",
		"":                                      "",
	}
	for in, want := range cases {
		if got := c.topicResourceName(in); got != want {
			t.Fatalf("topicResourceName(%q) = %q, want %q", in, got, want)
		}
	}

	var nilClient *Client
	if got := nilClient.topicResourceName("x"); got != "" {
		t.Fatalf("nil client should return empty name, got %q", got)
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	if got := topicNames(config.PubSubConfig{AlertsTopic: "  "}); len(got) != 0 {
		t.Fatalf("expected no topics, got %v", got)
	}
	if got := topicNames(config.PubSubConfig{AlertsTopic: "alerts"}); len(got) != 1 || got[0] != "alerts" {
		t.Fatalf("unexpected topics %v", got)
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("alerts") != nil {
		t.Fatal("nil client should not hand out publishers")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error on nil client")
	}
}
