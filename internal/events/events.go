// Package events carries domain events from the services to their consumers:
// the notification center in-process and the export worker through AMQP.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

type Type string

const (
	TransactionCreated  Type = "transaction.created"
	TransactionUpdated  Type = "transaction.updated"
	TransactionDeleted  Type = "transaction.deleted"
	GoalCreated         Type = "goal.created"
	GoalContributed     Type = "goal.contributed"
	SubscriptionChanged Type = "subscription.changed"
)

// Event is the envelope shared by the bus and the AMQP wire format.
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type TransactionPayload struct {
	Transaction core.Transaction `json:"transaction"`
}

type TransactionDeletedPayload struct {
	ID string `json:"id"`
}

type GoalPayload struct {
	Goal core.Goal `json:"goal"`
}

// GoalContributionPayload carries the goal before and after a contribution so
// consumers can detect crossed milestones.
type GoalContributionPayload struct {
	Before       core.Goal         `json:"before"`
	After        core.Goal         `json:"after"`
	Contribution core.Contribution `json:"contribution"`
}

type SubscriptionPayload struct {
	UserID   string    `json:"userId"`
	Previous core.Plan `json:"previous"`
	Current  core.Plan `json:"current"`
	Trial    bool      `json:"trial,omitempty"`
}

// Publisher delivers events to their consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// New wraps payload into an event of the given type.
func New(typ Type, occurredAt time.Time, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return Event{ID: uuid.NewString(), Type: typ, OccurredAt: occurredAt, Payload: raw}, nil
}

func NewTransactionCreated(t core.Transaction, at time.Time) (Event, error) {
	return New(TransactionCreated, at, TransactionPayload{Transaction: t})
}

func NewTransactionUpdated(t core.Transaction, at time.Time) (Event, error) {
	return New(TransactionUpdated, at, TransactionPayload{Transaction: t})
}

func NewTransactionDeleted(id string, at time.Time) (Event, error) {
	return New(TransactionDeleted, at, TransactionDeletedPayload{ID: id})
}

func NewGoalCreated(g core.Goal, at time.Time) (Event, error) {
	return New(GoalCreated, at, GoalPayload{Goal: g})
}

func NewGoalContributed(before, after core.Goal, c core.Contribution, at time.Time) (Event, error) {
	return New(GoalContributed, at, GoalContributionPayload{Before: before, After: after, Contribution: c})
}

func NewSubscriptionChanged(p SubscriptionPayload, at time.Time) (Event, error) {
	return New(SubscriptionChanged, at, p)
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("event without type")
	}
	return e, nil
}
