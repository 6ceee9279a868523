package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// TaskName identifies queued callable invocations in task storage. Every task
// this package produces carries it; workers reject anything else.
const TaskName = "fsm.invoke"

// TaskStatus tracks a task through its lifecycle.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	// TaskStatusSkipped marks tasks whose subject no longer existed when the
	// worker picked them up.
	TaskStatusSkipped TaskStatus = "skipped"
)

// Task is one queued callable invocation. The payload is the JSON-encoded
// fsm.Invocation produced when the engine flattened the operation.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Payload     []byte     `json:"payload"`
	Status      TaskStatus `json:"status"`
	Priority    int        `json:"priority"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
