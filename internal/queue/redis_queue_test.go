package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rileyafox/patient-portal/internal/config"
)

// noScriptError satisfies redis.Error so Script.Run recognizes the
// NOSCRIPT prefix and falls back to Eval.
type noScriptError string

func (e noScriptError) Error() string { return string(e) }
func (e noScriptError) RedisError()   {}

// fakeRedis implements Client over in-memory sorted sets, executing the
// queue's two scripts with the same move semantics as the Lua.
type fakeRedis struct {
	sets map[string]map[string]float64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{sets: make(map[string]map[string]float64)}
}

func (f *fakeRedis) zadd(key, member string, score float64) {
	if f.sets[key] == nil {
		f.sets[key] = make(map[string]float64)
	}
	f.sets[key][member] = score
}

func (f *fakeRedis) members(key string) []string {
	var out []string
	for member := range f.sets[key] {
		out = append(out, member)
	}
	return out
}

func (f *fakeRedis) popDue(key string, cutoff float64, limit int) []string {
	type entry struct {
		member string
		score  float64
	}
	var due []entry
	for member, score := range f.sets[key] {
		if score <= cutoff {
			due = append(due, entry{member, score})
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].score < due[j].score })
	if len(due) > limit {
		due = due[:limit]
	}
	var out []string
	for _, e := range due {
		delete(f.sets[key], e.member)
		out = append(out, e.member)
	}
	return out
}

func (f *fakeRedis) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
	for _, z := range members {
		f.zadd(key, z.Member.(string), z.Score)
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeRedis) ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	var removed int64
	for _, m := range members {
		member := m.(string)
		if _, ok := f.sets[key][member]; ok {
			delete(f.sets[key], member)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	switch script {
	case claimDueSource, reapExpiredSource:
		cutoff, _ := strconv.ParseFloat(fmt.Sprint(args[0]), 64)
		limit, _ := strconv.Atoi(fmt.Sprint(args[1]))
		newScore := cutoff
		if script == claimDueSource {
			newScore, _ = strconv.ParseFloat(fmt.Sprint(args[2]), 64)
		}

		moved := f.popDue(keys[0], cutoff, limit)
		result := make([]interface{}, 0, len(moved))
		for _, member := range moved {
			f.zadd(keys[1], member, newScore)
			result = append(result, member)
		}
		return redis.NewCmdResult(result, nil)
	}
	return redis.NewCmdResult(nil, fmt.Errorf("unexpected script: %s", script))
}

// EvalSha reports a missing script so Script.Run falls back to Eval.
func (f *fakeRedis) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(nil, noScriptError("NOSCRIPT fake client"))
}

func (f *fakeRedis) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeRedis) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(nil, noScriptError("NOSCRIPT fake client"))
}

func (f *fakeRedis) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeRedis) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func newTestQueue(fake *fakeRedis, maxDeliveries int) *RedisQueue {
	return NewRedisQueue(fake, config.QueueConfig{
		Name:          "reminders",
		MaxDeliveries: maxDeliveries,
	}, zap.NewNop())
}

func TestEnqueueSchedulesAtFireTime(t *testing.T) {
	fake := newFakeRedis()
	q := newTestQueue(fake, 3)
	fireAt := time.Now().Add(time.Hour)

	require.NoError(t, q.Enqueue(context.Background(), []byte(`{"shift_id":"s1","kind":"day_before"}`), fireAt))

	members := fake.members("reminders:scheduled")
	require.Len(t, members, 1)
	assert.Equal(t, float64(fireAt.Unix()), fake.sets["reminders:scheduled"][members[0]])
}

func TestDrainDueDeliversAndAcks(t *testing.T) {
	fake := newFakeRedis()
	q := newTestQueue(fake, 3)
	ctx := context.Background()
	body := []byte(`{"shift_id":"s1","kind":"day_before"}`)
	require.NoError(t, q.Enqueue(ctx, body, time.Now().Add(-time.Minute)))

	var got [][]byte
	q.drainDue(ctx, func(ctx context.Context, b []byte) error {
		got = append(got, b)
		return nil
	})

	require.Len(t, got, 1)
	assert.JSONEq(t, string(body), string(got[0]))
	assert.Empty(t, fake.members("reminders:scheduled"))
	assert.Empty(t, fake.members("reminders:processing"), "ack clears the claim")
}

func TestDrainDueHoldsClaimWhileHandlerRuns(t *testing.T) {
	fake := newFakeRedis()
	q := newTestQueue(fake, 3)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, []byte(`{"shift_id":"s1","kind":"two_hours"}`), time.Now().Add(-time.Minute)))

	var duringScheduled, duringProcessing int
	q.drainDue(ctx, func(ctx context.Context, b []byte) error {
		duringScheduled = len(fake.members("reminders:scheduled"))
		duringProcessing = len(fake.members("reminders:processing"))
		return nil
	})

	assert.Zero(t, duringScheduled)
	assert.Equal(t, 1, duringProcessing,
		"an in-flight delivery must hold a claim a crashed worker would leave behind")
}

func TestDrainDueNotDueYet(t *testing.T) {
	fake := newFakeRedis()
	q := newTestQueue(fake, 3)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, []byte(`{"shift_id":"s1","kind":"day_before"}`), time.Now().Add(time.Hour)))

	called := false
	q.drainDue(ctx, func(ctx context.Context, b []byte) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.Len(t, fake.members("reminders:scheduled"), 1)
}

func TestFailedDeliveryIsRescheduledWithBackoff(t *testing.T) {
	fake := newFakeRedis()
	q := newTestQueue(fake, 3)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, []byte(`{"shift_id":"s1","kind":"day_before"}`), time.Now().Add(-time.Minute)))

	before := time.Now()
	q.drainDue(ctx, func(ctx context.Context, b []byte) error {
		return errors.New("transport down")
	})

	assert.Empty(t, fake.members("reminders:processing"))
	members := fake.members("reminders:scheduled")
	require.Len(t, members, 1)

	var env envelope
	require.NoError(t, json.Unmarshal([]byte(members[0]), &env))
	assert.Equal(t, 1, env.Attempts)

	score := fake.sets["reminders:scheduled"][members[0]]
	assert.GreaterOrEqual(t, score, float64(before.Add(backoffFor(1)).Unix()),
		"redelivery is pushed out by the backoff")
}

func TestExhaustedDeliveriesAreDeadLettered(t *testing.T) {
	fake := newFakeRedis()
	q := newTestQueue(fake, 1)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, []byte(`{"shift_id":"s1","kind":"day_before"}`), time.Now().Add(-time.Minute)))

	q.drainDue(ctx, func(ctx context.Context, b []byte) error {
		return errors.New("transport down")
	})

	assert.Empty(t, fake.members("reminders:scheduled"))
	assert.Empty(t, fake.members("reminders:processing"))
	require.Len(t, fake.members("reminders:dead"), 1, "dead-lettering is the only terminal failure")
}

func TestReapExpiredReturnsAbandonedClaims(t *testing.T) {
	fake := newFakeRedis()
	q := newTestQueue(fake, 3)
	ctx := context.Background()

	raw, err := json.Marshal(envelope{ID: "m1", Body: []byte(`{"shift_id":"s1","kind":"day_before"}`)})
	require.NoError(t, err)
	// A claim whose worker died: deadline already passed.
	fake.zadd("reminders:processing", string(raw), float64(time.Now().Add(-time.Minute).Unix()))
	// A live claim with a future deadline.
	live, err := json.Marshal(envelope{ID: "m2", Body: []byte(`{"shift_id":"s2","kind":"two_hours"}`)})
	require.NoError(t, err)
	fake.zadd("reminders:processing", string(live), float64(time.Now().Add(time.Minute).Unix()))

	q.reapExpired(ctx)

	scheduled := fake.members("reminders:scheduled")
	require.Len(t, scheduled, 1, "the abandoned claim is redelivered, not lost")
	assert.Equal(t, string(raw), scheduled[0])
	require.Len(t, fake.members("reminders:processing"), 1)
	assert.Equal(t, string(live), fake.members("reminders:processing")[0])
}

func TestUnreadableEnvelopeIsDropped(t *testing.T) {
	fake := newFakeRedis()
	q := newTestQueue(fake, 3)
	ctx := context.Background()
	fake.zadd("reminders:scheduled", "not json", float64(time.Now().Add(-time.Minute).Unix()))

	called := false
	q.drainDue(ctx, func(ctx context.Context, b []byte) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.Empty(t, fake.members("reminders:scheduled"))
	assert.Empty(t, fake.members("reminders:processing"),
		"an unreadable envelope must not circle through the reaper forever")
}

func TestBackoffFor(t *testing.T) {
	assert.Equal(t, 30*time.Second, backoffFor(1))
	assert.Equal(t, 2*time.Minute, backoffFor(4))
	assert.Equal(t, 5*time.Minute, backoffFor(10), "backoff is capped")
	assert.Equal(t, 5*time.Minute, backoffFor(100))
}

func TestEnvelopePreservesBody(t *testing.T) {
	body := []byte(`{"shift_id":"abc","kind":"day_before"}`)
	raw, err := json.Marshal(envelope{ID: "m1", Body: body})
	require.NoError(t, err)

	var decoded envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "m1", decoded.ID)
	assert.Zero(t, decoded.Attempts)
	assert.JSONEq(t, string(body), string(decoded.Body), "envelope must not rewrite the payload contract")
}
