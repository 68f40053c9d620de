package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// FixedCostEntry is a fixed cost as carried on the wire.
type FixedCostEntry struct {
	AmountCents int64  `json:"amount_cents"`
	CategoryID  string `json:"category_id,omitempty"`
}

// OnboardingCompletedMessage announces a finished wizard run. It carries the
// full answers so the worker does not need the volatile run state.
type OnboardingCompletedMessage struct {
	RunID              string           `json:"run_id"`
	UserID             string           `json:"user_id"`
	Currency           string           `json:"currency,omitempty"`
	Timeline           string           `json:"timeline,omitempty"`
	FixedCosts         []FixedCostEntry `json:"fixed_costs"`
	SpendingCategories []string         `json:"spending_categories"`
	Timestamp          time.Time        `json:"timestamp"`
}

// NewOnboardingCompletedMessage creates a message stamped with the current time
func NewOnboardingCompletedMessage(runID, userID string) *OnboardingCompletedMessage {
	return &OnboardingCompletedMessage{
		RunID:              runID,
		UserID:             userID,
		FixedCosts:         []FixedCostEntry{},
		SpendingCategories: []string{},
		Timestamp:          time.Now(),
	}
}

// Validate checks the fields the worker relies on
func (m *OnboardingCompletedMessage) Validate() error {
	if m.RunID == "" {
		return fmt.Errorf("missing run id")
	}
	if m.UserID == "" {
		return fmt.Errorf("missing user id")
	}
	for i, fc := range m.FixedCosts {
		if fc.AmountCents < 0 {
			return fmt.Errorf("fixed cost %d: negative amount", i)
		}
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *OnboardingCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// OnboardingCompletedMessageFromJSON decodes and validates a message
func OnboardingCompletedMessageFromJSON(data []byte) (*OnboardingCompletedMessage, error) {
	var msg OnboardingCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
