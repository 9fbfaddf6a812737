// Package payment talks to the external payment processor. Orders create an
// intent per checkout and read it back to learn whether the buyer paid.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrIntentNotFound is returned for unknown intent ids
var ErrIntentNotFound = errors.New("payment intent not found")

// IntentStatus is the processor's view of an intent
type IntentStatus string

const (
	IntentRequiresPayment IntentStatus = "requires_payment"
	IntentSucceeded       IntentStatus = "succeeded"
	IntentFailed          IntentStatus = "failed"
	IntentCanceled        IntentStatus = "canceled"
)

// Intent is one requested payment
type Intent struct {
	ID          string       `json:"id"`
	ClientToken string       `json:"client_secret"`
	Status      IntentStatus `json:"status"`
	AmountCents int64        `json:"amount"`
	Currency    string       `json:"currency"`
}

// IntentRequest asks the processor to collect an amount for an order
type IntentRequest struct {
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount"`
	Currency    string `json:"currency"`
}

// Gateway is the payment processor
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
}

// SandboxGateway approves every intent in memory. It stands in for the
// processor in development and tests.
type SandboxGateway struct {
	mu      sync.Mutex
	intents map[string]Intent
	// Outcome is the status intents settle to when read back
	Outcome IntentStatus
}

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{
		intents: make(map[string]Intent),
		Outcome: IntentSucceeded,
	}
}

func (g *SandboxGateway) CreateIntent(_ context.Context, req IntentRequest) (Intent, error) {
	if req.AmountCents <= 0 {
		return Intent{}, fmt.Errorf("amount must be greater than 0")
	}

	id := uuid.NewString()
	intent := Intent{
		ID:          "pi_sandbox_" + strings.ReplaceAll(id, "-", ""),
		ClientToken: "sandbox_secret_" + uuid.NewString(),
		Status:      IntentRequiresPayment,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
	}

	g.mu.Lock()
	g.intents[intent.ID] = intent
	g.mu.Unlock()
	return intent, nil
}

// GetIntent settles a pending intent to Outcome on first read.
func (g *SandboxGateway) GetIntent(_ context.Context, id string) (Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[id]
	if !ok {
		return Intent{}, ErrIntentNotFound
	}
	if intent.Status == IntentRequiresPayment && g.Outcome != "" {
		intent.Status = g.Outcome
		g.intents[id] = intent
	}
	return intent, nil
}

var (
	_ Gateway = (*SandboxGateway)(nil)
	_ Gateway = (*HTTPGateway)(nil)
)
