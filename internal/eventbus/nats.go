package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/pinegen/api/internal/models"
	"github.com/pinegen/api/internal/telemetry"
	"go.uber.org/zap"
)

// Subjects published by the generation service
const (
	SubjectAttempt = "pinegen.attempt"
	SubjectOutcome = "pinegen.outcome"
)

// Conn is the subset of *nats.Conn the publisher needs
type Conn interface {
	Publish(subject string, data []byte) error
}

// AttemptEvent is published after every attempt
type AttemptEvent struct {
	GenerationID uuid.UUID `json:"generation_id"`
	Index        int       `json:"index"`
	Result       string    `json:"result"`
	Message      string    `json:"message"`
	ScriptChars  int       `json:"script_chars"`
	DurationMS   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// OutcomeEvent is published once per generation request
type OutcomeEvent struct {
	GenerationID uuid.UUID `json:"generation_id"`
	Outcome      string    `json:"outcome"`
	Succeeded    bool      `json:"succeeded"`
	Attempts     int       `json:"attempts"`
	MaxAttempts  int       `json:"max_attempts"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher forwards orchestrator progress to NATS. Publish failures are
// logged, never returned; events are diagnostics only.
type Publisher struct {
	conn   Conn
	logger *zap.Logger
}

// Connect dials NATS at url
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("pinegen-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return nc, nil
}

// NewPublisher creates a new publisher
func NewPublisher(conn Conn, logger *zap.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// AttemptCompleted publishes an AttemptEvent
func (p *Publisher) AttemptCompleted(_ context.Context, generationID uuid.UUID, attempt models.Attempt) {
	p.publish(SubjectAttempt, AttemptEvent{
		GenerationID: generationID,
		Index:        attempt.Index,
		Result:       telemetry.AttemptResult(attempt),
		Message:      attempt.Validation.Message,
		ScriptChars:  len(attempt.ExtractedScript),
		DurationMS:   attempt.Duration.Milliseconds(),
		Timestamp:    time.Now().UTC(),
	})
}

// GenerationCompleted publishes an OutcomeEvent
func (p *Publisher) GenerationCompleted(_ context.Context, outcome models.GenerationOutcome) {
	p.publish(SubjectOutcome, OutcomeEvent{
		GenerationID: outcome.ID,
		Outcome:      telemetry.OutcomeLabel(outcome),
		Succeeded:    outcome.Succeeded,
		Attempts:     len(outcome.Attempts),
		MaxAttempts:  outcome.MaxAttempts,
		Timestamp:    time.Now().UTC(),
	})
}

func (p *Publisher) publish(subject string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
