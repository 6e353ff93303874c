package pubsub

import (
	"testing"

	"github.com/angelmondragon/canteen-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "canteen-prod"}

	if got := c.subscriptionResourceName("cn-ledger-mirror"); got != "projects/canteen-prod/subscriptions/cn-ledger-mirror" {
		t.Fatalf("unexpected subscription name %q", got)
	}
	full := "projects/other/subscriptions/x"
	if got := c.subscriptionResourceName(full); got != full {
		t.Fatalf("expected full resource name preserved, got %q", got)
	}
	if got := c.topicResourceName(" cn-ledger-events "); got != "projects/canteen-prod/topics/cn-ledger-events" {
		t.Fatalf("unexpected topic name %q", got)
	}
	if got := c.topicResourceName(""); got != "" {
		t.Fatalf("expected empty topic name, got %q", got)
	}
}

func TestSubscriptionNamesSkipsBlank(t *testing.T) {
	if names := subscriptionNames(config.PubSubConfig{LedgerSubscription: "  "}); len(names) != 0 {
		t.Fatalf("expected no names, got %v", names)
	}
	names := subscriptionNames(config.PubSubConfig{LedgerSubscription: "cn-ledger-mirror"})
	if len(names) != 1 || names[0] != "cn-ledger-mirror" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	if c.Publisher("topic") != nil {
		t.Fatal("expected nil publisher from nil client")
	}
	if c.Subscription("sub") != nil {
		t.Fatal("expected nil subscriber from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestClientOptionsPreferInlineCredentials(t *testing.T) {
	if opts := clientOptions(config.GCPConfig{}); len(opts) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(opts))
	}
	opts := clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/etc/gcp.json"})
	if len(opts) != 1 {
		t.Fatalf("expected a single credentials option, got %d", len(opts))
	}
	if opts := clientOptions(config.GCPConfig{ApplicationCredentials: "/etc/gcp.json"}); len(opts) != 1 {
		t.Fatalf("expected file credentials option, got %d", len(opts))
	}
}
