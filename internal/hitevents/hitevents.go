// Package hitevents publishes pin lookup events to Kafka.
//
// Publishing never blocks the request path: events go through a bounded queue
// and are dropped when it is full.
package hitevents

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/digipin-courier/internal/core/observability"
)

type Event struct {
	DigiPin string    `json:"digipin"`
	Lat     float64   `json:"lat"`
	Lon     float64   `json:"lon"`
	TS      time.Time `json:"ts"`
	Source  string    `json:"source"`
}

// Sink accepts lookup events. Publish reports whether ev was queued.
type Sink interface {
	Publish(ev Event) bool
}

// Discard is the Sink used when events are disabled.
type Discard struct{}

func (Discard) Publish(Event) bool { return false }

type Publisher struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	stopped chan struct{}
	errDone chan struct{}
	log     zerolog.Logger
}

var _ Sink = (*Publisher)(nil)

func NewPublisher(brokers []string, topic string, queueSize int, logger zerolog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Flush.Frequency = 100 * time.Millisecond

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("hitevents: create async producer: %w", err)
	}
	return newWithProducer(prod, topic, queueSize, logger), nil
}

func newWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, logger zerolog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	p := &Publisher{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
		log:     logger.With().Str("component", "hitevents").Str("topic", topic).Logger(),
	}

	go p.pump()
	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err == nil {
				continue
			}
			observability.IncHitEvent("error")
			p.log.Warn().Err(err.Err).Msg("producer error")
		}
	}()
	return p
}

func (p *Publisher) pump() {
	defer close(p.stopped)
	for ev := range p.events {
		b, err := json.Marshal(ev)
		if err != nil {
			observability.IncHitEvent("error")
			p.log.Error().Err(err).Msg("marshal event")
			continue
		}
		// keyed by pin so one pin's events stay on one partition
		p.prod.Input() <- &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(ev.DigiPin),
			Value: sarama.ByteEncoder(b),
		}
	}
}

func (p *Publisher) Publish(ev Event) bool {
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	select {
	case p.events <- ev:
		observability.IncHitEvent("queued")
		return true
	default:
		observability.IncHitEvent("dropped")
		return false
	}
}

// Close flushes queued events and shuts the producer down. Publish must not
// be called after Close.
func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	err := p.prod.Close()
	<-p.errDone
	if err != nil {
		return fmt.Errorf("hitevents: close producer: %w", err)
	}
	return nil
}
