package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    redis "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog/log"
)

// Job is one queued run request.
type Job struct {
    RunID   string `json:"run_id"`
    Folder  string `json:"folder"`
    Mode    string `json:"mode"`
    Lang    string `json:"lang,omitempty"`
    Workers int    `json:"workers,omitempty"`
    Retries int    `json:"retries,omitempty"`
}

// Message is a dequeued job together with its stream ID for the later ack.
type Message struct {
    ID  string
    Job Job
}

// Depths are the approximate queue lengths, for gauges.
type Depths struct {
    Ready   int64
    Delayed int64
    Dead    int64
}

// Queue is a Redis Streams job queue with a consumer group, a delayed ZSET
// whose mover feeds due jobs back into the stream, a dead-letter stream and
// a cancellation set.
type Queue struct {
    client     *redis.Client
    stream     string
    group      string
    consumer   string
    cancelKey  string
    delayedKey string
    dlqStream  string
    stop       chan struct{}
}

// New connects to Redis, ensures the stream and consumer group exist, and
// starts the delayed mover.
func New(redisURL, stream, group, consumer string, poll time.Duration) (*Queue, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil {
        return nil, fmt.Errorf("parse redis url: %w", err)
    }
    c := redis.NewClient(opt)
    ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
    defer cancel()
    if err := c.Ping(ctx).Err(); err != nil {
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    q := &Queue{
        client:     c,
        stream:     stream,
        group:      group,
        consumer:   consumer,
        cancelKey:  "runs:cancelled:set",
        delayedKey: stream + ":delayed",
        dlqStream:  stream + ":dlq",
        stop:       make(chan struct{}),
    }
    // MKSTREAM creates the stream if missing
    if err := c.XGroupCreateMkStream(ctx, stream, group, "$").Err(); err != nil && !isBusyGroupErr(err) {
        return nil, fmt.Errorf("xgroup create: %w", err)
    }
    go q.mover(poll)
    return q, nil
}

func isBusyGroupErr(err error) bool {
    if err == nil { return false }
    if errors.Is(err, redis.ErrBusyGroup) { return true }
    // go-redis may surface the raw server reply
    return strings.Contains(strings.ToUpper(err.Error()), "BUSYGROUP")
}

func (q *Queue) Close() error {
    close(q.stop)
    return q.client.Close()
}

// Ping checks redis connectivity.
func (q *Queue) Ping(ctx context.Context) error { return q.client.Ping(ctx).Err() }

// Enqueue adds a job to the stream as a single-field entry {data: <json>}.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
    payload, err := json.Marshal(job)
    if err != nil { return err }
    return q.client.XAdd(ctx, &redis.XAddArgs{
        Stream: q.stream,
        Values: map[string]any{"data": string(payload)},
    }).Err()
}

// EnqueueDelayed schedules a job to enter the stream after delay.
func (q *Queue) EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) error {
    payload, err := json.Marshal(job)
    if err != nil { return err }
    at := time.Now().Add(delay)
    return q.client.ZAdd(ctx, q.delayedKey, redis.Z{Score: float64(at.Unix()), Member: string(payload)}).Err()
}

// Dequeue reads one message from the consumer group, blocking up to the
// given duration. ok is false when the queue was empty. A payload that does
// not decode goes straight to the dead-letter stream and is acked, so one
// poison entry cannot wedge the consumer.
func (q *Queue) Dequeue(ctx context.Context, block time.Duration) (Message, bool, error) {
    res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
        Group:    q.group,
        Consumer: q.consumer,
        Streams:  []string{q.stream, ">"},
        Count:    1,
        Block:    block,
    }).Result()
    if err != nil {
        if err == redis.Nil { return Message{}, false, nil }
        return Message{}, false, err
    }
    if len(res) == 0 || len(res[0].Messages) == 0 {
        return Message{}, false, nil
    }
    msg := res[0].Messages[0]
    raw, _ := msg.Values["data"].(string)
    var job Job
    if err := json.Unmarshal([]byte(raw), &job); err != nil || job.Folder == "" {
        log.Warn().Str("msg_id", msg.ID).Msg("invalid job payload, dead-lettering")
        _ = q.client.XAdd(ctx, &redis.XAddArgs{Stream: q.dlqStream,
            Values: map[string]any{"data": raw, "reason": "invalid payload"}}).Err()
        _ = q.Ack(ctx, msg.ID)
        return Message{}, false, nil
    }
    return Message{ID: msg.ID, Job: job}, true, nil
}

// Ack marks a message as processed.
func (q *Queue) Ack(ctx context.Context, msgID string) error {
    if msgID == "" { return nil }
    return q.client.XAck(ctx, q.stream, q.group, msgID).Err()
}

// DeadLetter pushes a job to the DLQ stream with a reason and acks the
// original message.
func (q *Queue) DeadLetter(ctx context.Context, msg Message, reason string) error {
    payload, err := json.Marshal(msg.Job)
    if err != nil { return err }
    if err := q.client.XAdd(ctx, &redis.XAddArgs{
        Stream: q.dlqStream,
        Values: map[string]any{"data": string(payload), "reason": reason},
    }).Err(); err != nil {
        return err
    }
    return q.Ack(ctx, msg.ID)
}

// CancelRun marks a run as cancelled. The consumer checks this before it
// starts working a job.
func (q *Queue) CancelRun(ctx context.Context, runID string) error {
    return q.client.SAdd(ctx, q.cancelKey, runID).Err()
}

// IsCancelled returns true when the run was cancelled.
func (q *Queue) IsCancelled(ctx context.Context, runID string) (bool, error) {
    return q.client.SIsMember(ctx, q.cancelKey, runID).Result()
}

// Depths returns the stream, delayed and dead-letter lengths.
func (q *Queue) Depths(ctx context.Context) (Depths, error) {
    pipe := q.client.Pipeline()
    xlen := pipe.XLen(ctx, q.stream)
    zcard := pipe.ZCard(ctx, q.delayedKey)
    dlen := pipe.XLen(ctx, q.dlqStream)
    if _, err := pipe.Exec(ctx); err != nil {
        return Depths{}, err
    }
    return Depths{Ready: xlen.Val(), Delayed: zcard.Val(), Dead: dlen.Val()}, nil
}

// mover periodically moves due delayed jobs from the ZSET into the stream.
func (q *Queue) mover(poll time.Duration) {
    if poll <= 0 { poll = time.Second }
    ticker := time.NewTicker(poll)
    defer ticker.Stop()
    for {
        select {
        case <-q.stop:
            return
        case <-ticker.C:
            q.moveOnce()
        }
    }
}

func (q *Queue) moveOnce() {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    vals, err := q.client.ZRangeByScoreWithScores(ctx, q.delayedKey, &redis.ZRangeBy{
        Min: "-inf", Max: fmt.Sprintf("%d", time.Now().Unix()), Offset: 0, Count: 100,
    }).Result()
    if err != nil || len(vals) == 0 { return }
    pipe := q.client.TxPipeline()
    for _, z := range vals {
        s, _ := z.Member.(string)
        pipe.XAdd(ctx, &redis.XAddArgs{Stream: q.stream, Values: map[string]any{"data": s}})
        pipe.ZRem(ctx, q.delayedKey, s)
    }
    _, _ = pipe.Exec(ctx)
}
