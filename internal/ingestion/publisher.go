package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// OpsStream is the JetStream stream of committed engine operations.
const OpsStream = "STABLE_OPS"

// OutboundOp is the published record of one committed operation. Subjects
// follow stable.ops.{op_type}.
type OutboundOp struct {
	ID           string    `json:"id"`
	OpType       string    `json:"op_type"`
	UserID       string    `json:"user_id"`
	Counterparty string    `json:"counterparty,omitempty"`
	Asset        string    `json:"asset,omitempty"`
	Amount       string    `json:"amount"`
	HealthFactor string    `json:"health_factor,omitempty"`
	At           time.Time `json:"at"`
}

// Publisher publishes committed operations for downstream consumers
// (indexers, liquidation bots watching health factors). Failures are
// non-fatal: the Postgres audit log remains the source of truth.
type Publisher struct {
	js    jetstream.JetStream
	input <-chan OutboundOp
	log   zerolog.Logger
}

func NewPublisher(js jetstream.JetStream, input <-chan OutboundOp, log zerolog.Logger) *Publisher {
	return &Publisher{js: js, input: input, log: log}
}

// EnsureOpsStream creates the outbound operations stream.
func EnsureOpsStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      OpsStream,
		Subjects:  []string{"stable.ops.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create ops stream: %w", err)
	}
	return nil
}

// Run publishes until ctx is cancelled or the channel closes.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case op, ok := <-p.input:
			if !ok {
				return nil
			}
			if err := p.publish(ctx, op); err != nil {
				p.log.Warn().Err(err).Str("op_id", op.ID).Msg("outbound publish failed")
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, op OutboundOp) error {
	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("marshal op: %w", err)
	}

	subject := fmt.Sprintf("stable.ops.%s", op.OpType)
	_, err = p.js.Publish(ctx, subject, data)
	return err
}
