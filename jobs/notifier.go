package jobs

import (
	"context"
	"log/slog"

	"github.com/dreamtoapp/jbrtechno-admin/internal/authz"
)

// PermissionNotifier forwards grant changes to the background queue so the
// affected user gets an email without blocking the admin request.
type PermissionNotifier struct {
	client *Client
	logger *slog.Logger
}

// NewPermissionNotifier constructs a queue-backed notifier.
func NewPermissionNotifier(client *Client, logger *slog.Logger) *PermissionNotifier {
	return &PermissionNotifier{client: client, logger: logger}
}

// PermissionsChanged enqueues a notification task for the principal.
func (n *PermissionNotifier) PermissionsChanged(ctx context.Context, principal authz.Principal, routes []string) error {
	if n == nil || n.client == nil {
		return nil
	}
	_, err := n.client.EnqueuePermissionNotify(ctx, PermissionNotifyPayload{
		Email:  principal.Email,
		Name:   principal.DisplayName,
		Routes: routes,
	})
	if err != nil && n.logger != nil {
		n.logger.Warn("enqueue permission notify", slog.Any("error", err))
	}
	return err
}
