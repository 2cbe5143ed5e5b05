package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskTypeTranslateDocument is the event name for translation requests
	TaskTypeTranslateDocument = "document/translate"
	// TranslationQueue is the asynq queue translation tasks are enqueued on
	TranslationQueue = "translations"

	translationTaskTimeout   = 10 * time.Minute
	translationTaskRetention = 24 * time.Hour
)

// TranslationDispatcher delivers translation events to a runner
type TranslationDispatcher interface {
	Dispatch(ctx context.Context, event TranslationEvent) error
}

// NewTranslationTask builds the asynq task for an event
func NewTranslationTask(event TranslationEvent) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTranslateDocument, data), nil
}

// AsynqDispatcher enqueues events on Redis through asynq
type AsynqDispatcher struct {
	client   *asynq.Client
	maxRetry int
}

// NewAsynqDispatcher creates a dispatcher on an existing asynq client
func NewAsynqDispatcher(client *asynq.Client, maxRetry int) *AsynqDispatcher {
	return &AsynqDispatcher{client: client, maxRetry: maxRetry}
}

// Dispatch enqueues the event
func (d *AsynqDispatcher) Dispatch(ctx context.Context, event TranslationEvent) error {
	task, err := NewTranslationTask(event)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := d.client.EnqueueContext(ctx, task,
		asynq.Queue(TranslationQueue),
		asynq.MaxRetry(d.maxRetry),
		asynq.Timeout(translationTaskTimeout),
		asynq.Retention(translationTaskRetention),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	debugLog("Enqueued %s task %s for job %s", TaskTypeTranslateDocument, info.ID, event.JobID)
	return nil
}

// TranslationTaskHandler runs asynq translation tasks
type TranslationTaskHandler struct {
	runner *TranslationRunner
	steps  StepRunner
}

// NewTranslationTaskHandler creates the asynq handler
func NewTranslationTaskHandler(runner *TranslationRunner) *TranslationTaskHandler {
	return &TranslationTaskHandler{runner: runner, steps: SequentialSteps{}}
}

// ProcessTask decodes and runs a translation event. Failures are recorded on
// the job by the runner, so only undecodable payloads are reported to asynq.
func (h *TranslationTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var event TranslationEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	result := h.runner.TranslateDocument(ctx, event, h.steps)
	if !result.Success {
		infoLog("Task for document %s finished: %s (%s)", event.DocumentID, result.Message, result.Error)
	}
	return nil
}

// InlineDispatcher runs events in-process, at most concurrency at a time.
// Used when no Redis is available.
type InlineDispatcher struct {
	runner *TranslationRunner
	steps  StepRunner
	sem    chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewInlineDispatcher creates an in-process dispatcher
func NewInlineDispatcher(runner *TranslationRunner, concurrency int) *InlineDispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &InlineDispatcher{
		runner: runner,
		steps:  SequentialSteps{},
		sem:    make(chan struct{}, concurrency),
	}
}

// Dispatch starts the event in a background goroutine and returns immediately
func (d *InlineDispatcher) Dispatch(_ context.Context, event TranslationEvent) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher is shut down")
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		d.sem <- struct{}{} // Acquire semaphore
		defer func() { <-d.sem }()

		// Detached from the request; the request finishes before the translation
		ctx, cancel := context.WithTimeout(context.Background(), translationTaskTimeout)
		defer cancel()

		result := d.runner.TranslateDocument(ctx, event, d.steps)
		if !result.Success {
			infoLog("Inline translation of document %s finished: %s (%s)", event.DocumentID, result.Message, result.Error)
		}
	}()
	return nil
}

// Wait stops accepting events and blocks until running ones finish
func (d *InlineDispatcher) Wait() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
