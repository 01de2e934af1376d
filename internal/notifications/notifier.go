// Package notifications fans workflow events out to the stored bell feed.
// Delivery is best effort: a failed insert is logged and swallowed so a
// notification problem never fails the workflow mutation that triggered it.
package notifications

import (
	"context"
	"fmt"
	"log"

	"github.com/goatkit/reqflow/internal/models"
	"github.com/goatkit/reqflow/internal/repository"
	"github.com/goatkit/reqflow/internal/workflow"
)

// Notifier writes workflow event notifications. Implements workflow.Notifier.
type Notifier struct {
	store *repository.NotificationRepository
}

// New creates a notifier over the stored feed.
func New(store *repository.NotificationRepository) *Notifier {
	return &Notifier{store: store}
}

// RequestAssigned notifies the manager who just received the request.
func (n *Notifier) RequestAssigned(ctx context.Context, req *models.Request, manager models.UserRef) {
	msg := fmt.Sprintf("Request %q has been assigned to you", req.Title)
	n.add(ctx, manager.ID, req.ID, msg)
}

// StatusChanged notifies the request's creator of the new status.
func (n *Notifier) StatusChanged(ctx context.Context, req *models.Request, actor workflow.Identity) {
	// The actor already knows; only the creator needs to hear about it.
	if req.CreatedBy.ID == actor.ID {
		return
	}
	msg := fmt.Sprintf("Request %q is now %s", req.Title, req.Status)
	if req.Remark != "" {
		msg += ": " + req.Remark
	}
	n.add(ctx, req.CreatedBy.ID, req.ID, msg)
}

// RequestOverdue notifies the assignee that a request blew its due date.
func (n *Notifier) RequestOverdue(ctx context.Context, req *models.Request) {
	if req.AssignedTo == nil {
		return
	}
	msg := fmt.Sprintf("Request %q is overdue", req.Title)
	n.add(ctx, req.AssignedTo.ID, req.ID, msg)
}

func (n *Notifier) add(ctx context.Context, userID, requestID, message string) {
	if err := n.store.Add(ctx, userID, requestID, message); err != nil {
		log.Printf("notifications: delivery to %s failed: %v", userID, err)
	}
}
