package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/angelmondragon/canteen-backend/pkg/config"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
)

var errNoBrokers = errors.New("kafka brokers are required")

// Client owns the writers and readers a process opens against the cluster.
type Client struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	readers []*kafka.Reader
}

// NewClient validates the broker list. Connections are opened lazily.
func NewClient(ctx context.Context, cfg config.KafkaConfig, logg *logger.Logger) (*Client, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, errNoBrokers
	}
	c := &Client{brokers: brokers, writers: map[string]*kafka.Writer{}}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "brokers", strings.Join(brokers, ",")), "kafka client initialized")
	}
	return c, nil
}

// Writer returns a synchronous writer for topic. Messages with the same key
// land on the same partition.
func (c *Client) Writer(topic string) *kafka.Writer {
	if c == nil || strings.TrimSpace(topic) == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
	}
	c.writers[topic] = w
	return w
}

// Reader returns a consumer-group reader with manual offset commits.
func (c *Client) Reader(topic, group string) *kafka.Reader {
	if c == nil {
		return nil
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	c.mu.Lock()
	c.readers = append(c.readers, r)
	c.mu.Unlock()
	return r
}

// Ping dials the first reachable broker.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("kafka client not initialized")
	}
	var lastErr error
	for _, broker := range c.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

// Close flushes writers and closes readers.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for topic, w := range c.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer %s: %w", topic, err))
		}
	}
	for _, r := range c.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.writers = map[string]*kafka.Writer{}
	c.readers = nil
	return errors.Join(errs...)
}
