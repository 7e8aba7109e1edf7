package worker

import (
	"context"

	"github.com/rileyafox/patient-portal/internal/queue"
	"github.com/rileyafox/patient-portal/internal/service"
)

// StartReminderWorker runs the queue consumer feeding the reminder
// dispatcher until ctx is cancelled. No-op when the queue is not
// configured.
func StartReminderWorker(ctx context.Context, q *queue.RedisQueue, reminders *service.ReminderService) {
	if q == nil || reminders == nil {
		return
	}
	go q.Run(ctx, reminders.HandleMessage)
}
