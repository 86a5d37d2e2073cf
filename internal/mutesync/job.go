package mutesync

import (
	"context"
	"fmt"

	"github.com/lexvia/case-gateway/internal/queue"
	"github.com/lexvia/case-gateway/internal/relay"
)

// Job is one pending blacklist mutation for the relay. Jobs are keyed by
// phone+intent so a pause followed by an unpause never collapses into a
// single marker.
type Job struct {
	CustomerID int64                 `json:"customer_id"`
	Phone      string                `json:"phone"`
	Intent     relay.BlacklistIntent `json:"intent"`
}

func (j Job) Key() string {
	return fmt.Sprintf("%d:%s", j.CustomerID, j.Intent)
}

// Publisher enqueues mute-sync jobs for the background consumer. The API
// process publishes; only the processor binary consumes.
type Publisher struct {
	queue *queue.Queue
}

func NewPublisher(q *queue.Queue) *Publisher {
	return &Publisher{queue: q}
}

func (p *Publisher) Enqueue(ctx context.Context, job Job) (string, error) {
	return p.queue.PublishJSON(ctx, job, map[string]string{
		"intent": string(job.Intent),
	})
}
