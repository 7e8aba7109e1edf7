package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rileyafox/patient-portal/internal/config"
)

const (
	claimBatchSize = 32

	// claimTimeout bounds how long a claimed delivery may sit in the
	// processing set before the reaper returns it to the schedule. A
	// worker that dies mid-delivery loses its claim after this long
	// and the message is redelivered, not lost.
	claimTimeout = 2 * time.Minute
)

// Client is the subset of redis commands the queue uses.
type Client interface {
	redis.Scripter
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
}

// claimDueSource atomically moves due members from the scheduled set to
// the processing set, scored with a claim deadline. Two workers polling
// the same queue never claim the same delivery, and a claim is only
// erased by an explicit ack.
const claimDueSource = `
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, member in ipairs(due) do
    redis.call('ZREM', KEYS[1], member)
    redis.call('ZADD', KEYS[2], ARGV[3], member)
end
return due
`

// reapExpiredSource returns claims whose deadline passed to the
// scheduled set for immediate redelivery.
const reapExpiredSource = `
local expired = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, member in ipairs(expired) do
    redis.call('ZREM', KEYS[1], member)
    redis.call('ZADD', KEYS[2], ARGV[1], member)
end
return expired
`

var (
	claimDueScript    = redis.NewScript(claimDueSource)
	reapExpiredScript = redis.NewScript(reapExpiredSource)
)

// envelope wraps a message body with queue-side redelivery bookkeeping.
// The body itself stays the producer/consumer contract.
type envelope struct {
	ID       string          `json:"id"`
	Attempts int             `json:"attempts"`
	Body     json.RawMessage `json:"body"`
}

// RedisQueue is a deferred delivery queue over Redis sorted sets.
type RedisQueue struct {
	client        Client
	name          string
	maxDeliveries int
	pollInterval  time.Duration
	logger        *zap.Logger
}

// NewRedisQueue constructs a queue over an established client.
func NewRedisQueue(client Client, cfg config.QueueConfig, logger *zap.Logger) *RedisQueue {
	return &RedisQueue{
		client:        client,
		name:          cfg.Name,
		maxDeliveries: cfg.MaxDeliveries,
		pollInterval:  cfg.PollInterval(),
		logger:        logger,
	}
}

func (q *RedisQueue) scheduledKey() string  { return q.name + ":scheduled" }
func (q *RedisQueue) processingKey() string { return q.name + ":processing" }
func (q *RedisQueue) deadKey() string       { return q.name + ":dead" }

// Enqueue schedules body for delivery at or after fireAt. Past fire
// times are stored as-is and picked up by the next poll.
func (q *RedisQueue) Enqueue(ctx context.Context, body []byte, fireAt time.Time) error {
	raw, err := json.Marshal(envelope{ID: uuid.NewString(), Body: body})
	if err != nil {
		return err
	}
	return q.client.ZAdd(ctx, q.scheduledKey(), redis.Z{
		Score:  float64(fireAt.Unix()),
		Member: string(raw),
	}).Err()
}

// Run polls for due messages until ctx is cancelled, delivering each to
// handler. Failed deliveries are re-scheduled with backoff and moved to
// the dead-letter set once maxDeliveries is exhausted; claims abandoned
// by a crashed worker are reaped back to the schedule.
func (q *RedisQueue) Run(ctx context.Context, handler Handler) {
	q.logger.Info("queue consumer started",
		zap.String("queue", q.name),
		zap.Duration("poll_interval", q.pollInterval))

	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("queue consumer stopped", zap.String("queue", q.name))
			return
		case <-ticker.C:
		}
		q.reapExpired(ctx)
		q.drainDue(ctx, handler)
	}
}

func (q *RedisQueue) drainDue(ctx context.Context, handler Handler) {
	for {
		members, err := claimDueScript.Run(ctx, q.client,
			[]string{q.scheduledKey(), q.processingKey()},
			strconv.FormatInt(time.Now().Unix(), 10),
			claimBatchSize,
			strconv.FormatInt(time.Now().Add(claimTimeout).Unix(), 10),
		).StringSlice()
		if err != nil {
			q.logger.Error("claim due messages failed", zap.Error(err))
			return
		}
		if len(members) == 0 {
			return
		}

		for _, member := range members {
			q.deliver(ctx, handler, member)
		}

		if len(members) < claimBatchSize {
			return
		}
	}
}

// reapExpired returns abandoned claims to the scheduled set so a worker
// crash between claim and ack delays a delivery instead of losing it.
func (q *RedisQueue) reapExpired(ctx context.Context) {
	reaped, err := reapExpiredScript.Run(ctx, q.client,
		[]string{q.processingKey(), q.scheduledKey()},
		strconv.FormatInt(time.Now().Unix(), 10),
		claimBatchSize,
	).StringSlice()
	if err != nil {
		q.logger.Error("reap expired claims failed", zap.Error(err))
		return
	}
	if len(reaped) > 0 {
		q.logger.Warn("re-scheduled abandoned claims", zap.Int("count", len(reaped)))
	}
}

func (q *RedisQueue) deliver(ctx context.Context, handler Handler, member string) {
	var env envelope
	if err := json.Unmarshal([]byte(member), &env); err != nil {
		// An unreadable envelope will never become readable; ack it
		// so the reaper does not redeliver it forever.
		q.logger.Error("dropping unreadable queue envelope", zap.Error(err))
		q.ack(ctx, member)
		return
	}
	env.Attempts++

	if err := handler(ctx, env.Body); err != nil {
		q.redeliver(ctx, env, member, err)
		return
	}
	q.ack(ctx, member)
}

func (q *RedisQueue) redeliver(ctx context.Context, env envelope, member string, cause error) {
	var moveErr error
	if env.Attempts >= q.maxDeliveries {
		q.logger.Error("message exhausted deliveries, dead-lettering",
			zap.String("message_id", env.ID),
			zap.Int("attempts", env.Attempts),
			zap.Error(cause))
		moveErr = q.moveTo(ctx, q.deadKey(), env, time.Now())
	} else {
		q.logger.Warn("delivery failed, re-scheduling",
			zap.String("message_id", env.ID),
			zap.Int("attempts", env.Attempts),
			zap.Error(cause))
		moveErr = q.moveTo(ctx, q.scheduledKey(), env, time.Now().Add(backoffFor(env.Attempts)))
	}

	if moveErr != nil {
		// Leave the claim in place; the reaper re-schedules it once
		// the deadline expires.
		q.logger.Error("re-schedule failed; claim left for reaper",
			zap.String("message_id", env.ID),
			zap.Error(moveErr))
		return
	}
	q.ack(ctx, member)
}

// ack removes a claim from the processing set.
func (q *RedisQueue) ack(ctx context.Context, member string) {
	if err := q.client.ZRem(ctx, q.processingKey(), member).Err(); err != nil {
		q.logger.Error("ack failed; claim will be reaped and redelivered", zap.Error(err))
	}
}

func (q *RedisQueue) moveTo(ctx context.Context, key string, env envelope, fireAt time.Time) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return q.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(fireAt.Unix()),
		Member: string(raw),
	}).Err()
}

// backoffFor spaces redeliveries out linearly, capped at five minutes.
func backoffFor(attempts int) time.Duration {
	d := time.Duration(attempts) * 30 * time.Second
	if d > 5*time.Minute {
		return 5 * time.Minute
	}
	return d
}
