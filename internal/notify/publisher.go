package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"faq-agent/model"
)

type EventType string

const (
	TicketCreated EventType = "ticket.created"
	TicketClosed  EventType = "ticket.closed"
)

// TicketEvent tells the expert team that a ticket changed.
type TicketEvent struct {
	Type       EventType    `json:"type"`
	Ticket     model.Ticket `json:"ticket"`
	OccurredAt time.Time    `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event TicketEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher sends ticket events to a Kafka topic keyed by ticket id, so
// every event for one ticket lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event TicketEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Ticket.TicketID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}

	log.Printf("[KafkaPublisher] sent %s for ticket %s", event.Type, event.Ticket.TicketID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, event TicketEvent) error { return nil }
func (Nop) Close() error                                         { return nil }
