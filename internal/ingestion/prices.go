// Package ingestion connects the engine to NATS JetStream: inbound price
// updates for the oracle feeds, outbound records of committed operations.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"StableEngine/internal/observability"
	"StableEngine/internal/oracle"
)

// PriceStream is the JetStream stream holding feed price updates.
const PriceStream = "STABLE_PRICES"

// PriceSubject is the subject filter for price updates; the last token is
// the collateral asset symbol: stable.prices.WETH.
const PriceSubject = "stable.prices.>"

// PriceUpdate is the JSON payload published by feed operators. Price is an
// integer string in the fixed 8-decimal feed convention. Validation and
// freshness are the feed operator's responsibility; the engine takes what
// the stream delivers.
type PriceUpdate struct {
	Symbol string    `json:"symbol"`
	Price  string    `json:"price"`
	At     time.Time `json:"at"`
}

// PriceSubscriber consumes price updates and pushes them into the per-asset
// memory feeds the oracle adapter reads.
type PriceSubscriber struct {
	js      jetstream.JetStream
	feeds   map[string]*oracle.MemoryFeed
	metrics *observability.Metrics
	log     zerolog.Logger

	consumer jetstream.ConsumeContext
}

func NewPriceSubscriber(
	js jetstream.JetStream,
	feeds map[string]*oracle.MemoryFeed,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *PriceSubscriber {
	return &PriceSubscriber{
		js:      js,
		feeds:   feeds,
		metrics: metrics,
		log:     log,
	}
}

// EnsurePriceStream creates the price stream if it does not exist. Prices
// are superseded quickly, so only the latest message per subject is kept.
func EnsurePriceStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:              PriceStream,
		Subjects:          []string{PriceSubject},
		Storage:           jetstream.FileStorage,
		Retention:         jetstream.LimitsPolicy,
		MaxMsgsPerSubject: 1,
	})
	if err != nil {
		return fmt.Errorf("create price stream: %w", err)
	}
	return nil
}

// Subscribe creates a durable consumer starting from the latest price per
// subject. Gaps are fine: each update fully replaces the previous one.
func (ps *PriceSubscriber) Subscribe(ctx context.Context) error {
	consumer, err := ps.js.CreateOrUpdateConsumer(ctx, PriceStream, jetstream.ConsumerConfig{
		Durable:       "stable-prices",
		FilterSubject: PriceSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverLastPerSubjectPolicy,
	})
	if err != nil {
		return fmt.Errorf("create price consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		ps.handle(msg)
	})
	if err != nil {
		return fmt.Errorf("consume prices: %w", err)
	}
	ps.consumer = cc
	return nil
}

func (ps *PriceSubscriber) handle(msg jetstream.Msg) {
	var update PriceUpdate
	if err := json.Unmarshal(msg.Data(), &update); err != nil {
		ps.reject("parse", msg.Subject(), err)
		msg.Ack() // malformed messages are dropped, not redelivered
		return
	}

	feed, ok := ps.feeds[update.Symbol]
	if !ok {
		ps.reject("unknown_asset", update.Symbol, nil)
		msg.Ack()
		return
	}

	price, err := uint256.FromDecimal(update.Price)
	if err != nil || price.IsZero() {
		ps.reject("bad_price", update.Symbol, err)
		msg.Ack()
		return
	}

	feed.SetPrice(price)
	if ps.metrics != nil {
		ps.metrics.PriceUpdates.WithLabelValues(update.Symbol).Inc()
	}
	ps.log.Debug().
		Str("asset", update.Symbol).
		Str("price", price.Dec()).
		Msg("price updated")
	msg.Ack()
}

func (ps *PriceSubscriber) reject(reason, subject string, err error) {
	if ps.metrics != nil {
		ps.metrics.PriceRejected.WithLabelValues(reason).Inc()
	}
	ps.log.Warn().Err(err).Str("subject", subject).Str("reason", reason).
		Msg("price update dropped")
}

// Stop drains the consumer.
func (ps *PriceSubscriber) Stop() {
	if ps.consumer != nil {
		ps.consumer.Stop()
	}
}
