package main

import (
	"context"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	kafkago "github.com/segmentio/kafka-go"
)

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

func (p *gcpPublisher) Publish(ctx context.Context, msg outboundMessage) error {
	if p == nil || p.Publisher == nil {
		return errors.New("pubsub publisher is nil")
	}
	result := p.Publisher.Publish(ctx, &gcppubsub.Message{
		Data:       msg.Data,
		Attributes: msg.Attributes,
	})
	if result == nil {
		return errors.New("publish result is nil")
	}
	_, err := result.Get(ctx)
	return err
}

// kafkaWriter is the subset of *kafka.Writer the adapter needs.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

type kafkaPublisher struct {
	writer kafkaWriter
}

func newKafkaPublisher(w *kafkago.Writer) publisher {
	if w == nil {
		return nil
	}
	return &kafkaPublisher{writer: w}
}

func (p *kafkaPublisher) Publish(ctx context.Context, msg outboundMessage) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka writer is nil")
	}
	headers := make([]kafkago.Header, 0, len(msg.Attributes))
	for k, v := range msg.Attributes {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Key:     []byte(msg.Key),
		Value:   msg.Data,
		Headers: headers,
	}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}
