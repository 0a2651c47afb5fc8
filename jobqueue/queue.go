// Package jobqueue fans ingest and learning work out to a worker pool over
// Redis, grounded on the teacher's queue/redis.Queue (list push/blocking-pop
// plus a processing-deadline sorted set) and worker/pool.go's worker-per-queue
// shape, adapted to this domain's job kinds and threaded with context.Context
// per call instead of a struct-held context.
package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Kind names the unit of work a job carries.
type Kind string

const (
	KindIngestRepository     Kind = "ingest_repository"
	KindLearnPatterns        Kind = "learn_patterns"
	KindLearnCrossRepository Kind = "learn_cross_repository"
	KindApplyPatterns        Kind = "apply_patterns"
)

// ParsedFileRef carries one already-parsed file's output: path, language,
// AST, extracted features, and a content sample for pattern learning. The
// parser that produces these is an external collaborator out of this
// module's scope (spec.md §1); a job payload carries its output rather than
// raw source, since nothing in this service re-parses source.
type ParsedFileRef struct {
	Path     string                 `json:"path"`
	Language string                 `json:"language"`
	AST      string                 `json:"ast,omitempty"`
	Content  string                 `json:"content,omitempty"`
	Features map[string]interface{} `json:"features,omitempty"`
}

// DocRef carries one document's path, kind, and content for doc storage and
// doc-pattern learning.
type DocRef struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// DependencyPairRef is one inter-component dependency edge observed by the
// (out-of-scope) extraction step, carried for architecture-pattern learning.
type DependencyPairRef struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Job is one unit of fan-out work: ingest a repo, learn patterns from one
// repo, learn cross-repository patterns across a set, or apply reference
// patterns to a target repo. Kinds that need parsed content (ingest, learn,
// apply) carry it inline on the job, already produced upstream.
type Job struct {
	ID              string                 `json:"id"`
	Kind            Kind                   `json:"kind"`
	RepoID          int                    `json:"repo_id,omitempty"`
	ReferenceID     int                    `json:"reference_id,omitempty"`
	RepoIDs         []int                  `json:"repo_ids,omitempty"`
	Files           []ParsedFileRef        `json:"files,omitempty"`
	Docs            []DocRef               `json:"docs,omitempty"`
	DirectoryShape  map[string]interface{} `json:"directory_shape,omitempty"`
	DependencyPairs []DependencyPairRef    `json:"dependency_pairs,omitempty"`
	EnqueuedAt      time.Time              `json:"enqueued_at"`
	RetryCount      int                    `json:"retry_count"`
}

// QueueName maps a job kind to the Redis queue it fans out on, so ingest
// work and learn work get independent worker counts.
func (j Job) QueueName() string {
	switch j.Kind {
	case KindIngestRepository:
		return "ingest"
	case KindLearnPatterns:
		return "learn"
	case KindLearnCrossRepository:
		return "cross_learn"
	case KindApplyPatterns:
		return "apply"
	default:
		return "default"
	}
}

// Config configures the Redis-backed queue.
type Config struct {
	RedisURL  string
	KeyPrefix string
}

// Queue is a Redis list-backed job queue: RPush/BLPop for enqueue/dequeue,
// plus a processing sorted set that records each in-flight job ID scored by
// its deadline. Nothing in this package scans that set for expired
// deadlines; a job leaves it through CompleteJob or FailJob.
type Queue struct {
	client *redis.Client
	prefix string
}

// New opens a Redis client and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Queue, error) {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "repoanalyzer:jobs:"
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("jobqueue: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("jobqueue: connect: %w", err)
	}

	return &Queue{client: client, prefix: prefix}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) queueKey(name string) string {
	return q.prefix + name
}

func (q *Queue) processingKey() string {
	return q.prefix + "processing"
}

// Enqueue pushes a job onto the queue named by its Kind.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("jobqueue: marshal job: %w", err)
	}
	return q.client.RPush(ctx, q.queueKey(job.QueueName()), payload).Err()
}

// Dequeue blocks up to timeout waiting for a job on the named queue. A nil
// job with a nil error means the wait timed out with nothing available.
func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, q.queueKey(queueName)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jobqueue: dequeue: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("jobqueue: unmarshal job: %w", err)
	}
	return &job, nil
}

// MarkProcessing records job as in flight with a processing deadline.
func (q *Queue) MarkProcessing(ctx context.Context, jobID string, deadline time.Time) error {
	return q.client.ZAdd(ctx, q.processingKey(), redis.Z{
		Score:  float64(deadline.Unix()),
		Member: jobID,
	}).Err()
}

// CompleteJob removes a job from the processing set.
func (q *Queue) CompleteJob(ctx context.Context, jobID string) error {
	return q.client.ZRem(ctx, q.processingKey(), jobID).Err()
}

// FailJob removes job from the processing set and, if requeue is true,
// re-enqueues it with an incremented retry count.
func (q *Queue) FailJob(ctx context.Context, job Job, requeue bool) error {
	if err := q.CompleteJob(ctx, job.ID); err != nil {
		return err
	}
	if !requeue {
		return nil
	}
	job.RetryCount++
	return q.Enqueue(ctx, job)
}

// Depth reports the number of jobs waiting on a queue.
func (q *Queue) Depth(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, q.queueKey(queueName)).Result()
}

// IsProcessing reports whether jobID is currently in the processing set.
func (q *Queue) IsProcessing(ctx context.Context, jobID string) (bool, error) {
	_, err := q.client.ZScore(ctx, q.processingKey(), jobID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
