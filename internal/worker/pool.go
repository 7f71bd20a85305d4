package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const QueueNotify = "jobs:notify"

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NotifyPayload describes an incident lifecycle event to announce by email.
type NotifyPayload struct {
	Event         string `json:"event"` // "created" | "resolved"
	IncidentID    string `json:"incident_id"`
	Title         string `json:"title"`
	Office        string `json:"office"`
	ReporterName  string `json:"reporter_name"`
	ReporterEmail string `json:"reporter_email"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueNotify pushes a notification job to Redis. Enqueue failures are
// logged and swallowed — a lost notification must not fail the request
// that produced it.
func (d *Dispatcher) EnqueueNotify(ctx context.Context, payload NotifyPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("dispatcher: marshal notify payload")
		return
	}
	job := Job{Type: "notify", Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		log.Error().Err(err).Msg("dispatcher: marshal job")
		return
	}
	if err := d.rdb.LPush(ctx, QueueNotify, encoded).Err(); err != nil {
		log.Error().Err(err).Str("event", payload.Event).Msg("dispatcher: enqueue failed")
	}
}

// Handlers holds the processors wired at the composition root.
type Handlers struct {
	Notify *NotifyWorker
}

// StartWorkerPool launches numWorkers goroutines consuming the notify queue.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *Handlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *Handlers, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueNotify).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers *Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	switch job.Type {
	case "notify":
		if err := handlers.Notify.Process(ctx, job.Payload); err != nil {
			SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), maxNotifyAttempts)
		}
	default:
		log.Warn().Str("type", job.Type).Str("queue", queue).Msg("unknown job type")
	}
}
