package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypePermissionNotify notifies a user that their route grants changed.
	TaskTypePermissionNotify = "permissions:notify"
	// TaskTypeSessionPrune removes expired session audit records.
	TaskTypeSessionPrune = "sessions:prune"
)

// PermissionNotifyPayload describes a permission-change notification.
type PermissionNotifyPayload struct {
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Routes []string `json:"routes"`
}

// NewPermissionNotifyTask constructs an Asynq task.
func NewPermissionNotifyTask(payload PermissionNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePermissionNotify, data), nil
}

// HandlePermissionNotifyTask processes TaskTypePermissionNotify tasks.
func HandlePermissionNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload PermissionNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: deliver via SMTP once the mail relay is provisioned.
	fmt.Printf("[jobs] permissions changed for %s routes=%s\n", payload.Email, strings.Join(payload.Routes, ","))
	return nil
}

// NewSessionPruneTask constructs the session prune task.
func NewSessionPruneTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionPrune, nil)
}
