package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is one verification request taken from the queue.
// A Task is immutable once enqueued.
type Task struct {
	ID             string    `json:"id"`
	Input          string    `json:"input"`
	ConversationID string    `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewTask creates a task with a fresh ID and creation time
func NewTask(input, conversationID string) Task {
	return Task{
		ID:             uuid.NewString(),
		Input:          strings.TrimSpace(input),
		ConversationID: strings.TrimSpace(conversationID),
		CreatedAt:      time.Now().UTC(),
	}
}

// Outcome classifies how a task ended from the consumer's point of view
type Outcome string

const (
	OutcomeSucceeded      Outcome = "succeeded"
	OutcomeDropped        Outcome = "dropped"         // Task-fatal: malformed envelope or handler error
	OutcomeDeliveryFailed Outcome = "delivery_failed" // Result produced but not delivered
	OutcomePanicked       Outcome = "panicked"        // Handler panicked; recovered by the worker
)
