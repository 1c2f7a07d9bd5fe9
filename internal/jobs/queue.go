package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TaskProbeFile = "probe:file"
)

// Queue wraps the asynq client/server pair used for background probe work.
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewQueue(redisAddr string) *Queue {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	client := asynq.NewClient(redisOpt)
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
		},
	)
	return &Queue{client: client, server: server, mux: asynq.NewServeMux()}
}

// ProbeFilePayload identifies the file a probe task should refresh.
type ProbeFilePayload struct {
	FileID string `json:"file_id"`
}

// EnqueueProbe schedules a (re)probe of one file. The task ID pins one
// pending probe per file so repeated triggers collapse.
func (q *Queue) EnqueueProbe(fileID uuid.UUID) error {
	payload, err := json.Marshal(ProbeFilePayload{FileID: fileID.String()})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskProbeFile, payload)
	_, err = q.client.Enqueue(task, asynq.TaskID("probe:"+fileID.String()), asynq.Queue("default"))
	if err != nil {
		return fmt.Errorf("enqueue probe: %w", err)
	}
	return nil
}

// Handle registers a task handler on the queue's mux.
func (q *Queue) Handle(taskType string, handler asynq.Handler) {
	q.mux.Handle(taskType, handler)
}

// Run starts the worker loop; blocks until Shutdown.
func (q *Queue) Run() error {
	return q.server.Run(q.mux)
}

// Start runs the worker loop in the background.
func (q *Queue) Start() {
	go func() {
		if err := q.Run(); err != nil {
			log.Printf("jobs: worker stopped: %v", err)
		}
	}()
}

func (q *Queue) Shutdown() {
	q.server.Shutdown()
	q.client.Close()
}

// Enqueue is a low-level escape hatch for callers that build their own tasks.
func (q *Queue) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	_, err := q.client.EnqueueContext(ctx, task, opts...)
	return err
}
