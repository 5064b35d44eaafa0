package hitevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/digipin-courier/internal/core/observability"
)

// Observer is fed the pin of every consumed event. *hotness.Recorder
// satisfies it.
type Observer interface {
	Observe(code string) (string, error)
}

type ConsumerConfig struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 30 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 3 * time.Second
	}
	if c.RebalanceTimeout <= 0 {
		c.RebalanceTimeout = 30 * time.Second
	}
	return c
}

// Consumer reads lookup events back from Kafka so hot cell scores include
// lookups served by every replica, not just this one.
type Consumer struct {
	cfg ConsumerConfig
	obs Observer
	log zerolog.Logger
}

const consumeRetryDelay = 2 * time.Second

func NewConsumer(cfg ConsumerConfig, obs Observer, logger zerolog.Logger) *Consumer {
	return &Consumer{
		cfg: cfg.withDefaults(),
		obs: obs,
		log: logger.With().Str("component", "hitevents_consumer").Str("topic", cfg.Topic).Logger(),
	}
}

// Start consumes until ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	if c.obs == nil {
		return errors.New("hitevents: consumer has no observer")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("hitevents: create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	return c.run(ctx, group)
}

func (c *Consumer) run(ctx context.Context, group sarama.ConsumerGroup) error {
	handler := &groupHandler{process: c.ProcessOne}
	c.log.Info().Strs("brokers", c.cfg.Brokers).Str("group", c.cfg.GroupID).Msg("hit events consumer starting")

	for {
		err := group.Consume(ctx, []string{c.cfg.Topic}, handler)
		if ctx.Err() != nil {
			c.log.Info().Msg("hit events consumer shutting down")
			return nil
		}
		if err == nil {
			// rebalance, rejoin
			continue
		}
		c.log.Error().Err(err).Msg("consumer error")
		select {
		case <-ctx.Done():
			c.log.Info().Msg("hit events consumer shutting down")
			return nil
		case <-time.After(consumeRetryDelay):
		}
	}
}

// ProcessOne feeds a single lookup event to the observer. Undecodable
// messages and invalid pins are counted and skipped.
func (c *Consumer) ProcessOne(_ context.Context, msg *sarama.ConsumerMessage) error {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		observability.IncHitEvent("decode_error")
		c.log.Warn().Err(err).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("undecodable event")
		return fmt.Errorf("%w: json decode: %v", errSkip, err)
	}
	if _, err := c.obs.Observe(ev.DigiPin); err != nil {
		observability.IncHitEvent("invalid")
		c.log.Debug().Err(err).Str("digipin", ev.DigiPin).Msg("event pin rejected")
		return fmt.Errorf("%w: %v", errSkip, err)
	}
	observability.IncHitEvent("consumed")
	return nil
}
