package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/graph"
	"github.com/dgallion1/docgraph/internal/parser"
	"github.com/dgallion1/docgraph/internal/pathstore"
)

type fakePublisher struct {
	mu    sync.Mutex
	errs  []error
	calls int
	docs  []string
}

func (f *fakePublisher) Publish(_ context.Context, docID string, d *graph.Document) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return 0, err
		}
	}
	f.docs = append(f.docs, docID)
	n := 0
	d.Root.Walk(func(*graph.Node, int) bool { n++; return true })
	return n, nil
}

func newTestWorker(pub Publisher) *Worker {
	w := NewWorker(NewProcessor(nil, parser.Options{}, false, nil), pub, nil)
	w.wait = func(int) time.Duration { return 0 }
	return w
}

func newTestJob(filename string) *Job {
	return NewJob(filename, "doc-1", []byte(notes), config.MustResolve(config.Generic), false)
}

func unavailable() error {
	return &pathstore.StatusError{Op: "put node", Code: 503, Body: "busy"}
}

func TestWorkerProcess(t *testing.T) {
	pub := &fakePublisher{}
	job := newTestJob("notes.txt")

	newTestWorker(pub).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Empty(t, snap.Progress.Errors)
	assert.Equal(t, 2, snap.Progress.Fragments)
	assert.Equal(t, 1, snap.Progress.Nodes)
	assert.Equal(t, 2, snap.Progress.Published)
	assert.Equal(t, []string{"doc-1"}, pub.docs)
	assert.NotNil(t, job.Result())
	assert.Nil(t, job.FileData())
}

func TestWorkerWithoutPublisher(t *testing.T) {
	job := newTestJob("notes.txt")
	newTestWorker(nil).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Zero(t, snap.Progress.Published)
}

func TestWorkerRetriesPublish(t *testing.T) {
	tests := []struct {
		name   string
		errs   []error
		status JobStatus
		calls  int
	}{
		{"recovers", []error{unavailable(), unavailable()}, StatusCompleted, 3},
		{"gives up", []error{unavailable(), unavailable(), unavailable()}, StatusFailed, MaxRetries},
		{"permanent", []error{&pathstore.StatusError{Op: "put node", Code: 400}}, StatusFailed, 1},
		{"plain error", []error{errors.New("boom")}, StatusFailed, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{errs: tt.errs}
			job := newTestJob("notes.txt")

			newTestWorker(pub).Process(context.Background(), job)

			snap := job.Snapshot()
			assert.Equal(t, tt.status, snap.Status)
			assert.Equal(t, tt.calls, pub.calls)
			if tt.status == StatusFailed {
				assert.Equal(t, "publishing", snap.Phase)
				require.Len(t, snap.Progress.Errors, 1)
				assert.Contains(t, snap.Progress.Errors[0], "publish")
			}
		})
	}
}

func TestWorkerExtractionFailure(t *testing.T) {
	pub := &fakePublisher{}
	job := newTestJob("scan.png")

	newTestWorker(pub).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, string(StatusExtracting), snap.Phase)
	require.Len(t, snap.Progress.Errors, 1)
	assert.Contains(t, snap.Progress.Errors[0], "unsupported")
	assert.Zero(t, pub.calls)
	assert.Nil(t, job.FileData())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(unavailable()))
	assert.True(t, IsRetryable(&pathstore.StatusError{Code: 429}))
	assert.False(t, IsRetryable(&pathstore.StatusError{Code: 404}))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.False(t, IsRetryable(nil))
}

func TestBackoff(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := Backoff(attempt)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+base/2)
	}
	assert.Less(t, Backoff(10), 45*time.Second)
}

func TestOrchestrator(t *testing.T) {
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Hour}
	pub := &fakePublisher{}
	o := NewOrchestrator(cfg, NewProcessor(nil, parser.Options{}, false, nil), pub, nil)
	o.Start(context.Background())
	defer o.Stop()

	job := newTestJob("notes.txt")
	require.NoError(t, o.Submit(job))
	assert.Same(t, job, o.GetJob(job.ID))
	assert.Equal(t, 1, o.JobCount())

	require.Eventually(t, func() bool {
		return o.GetJob(job.ID).Snapshot().Status == StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestOrchestratorQueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, NewProcessor(nil, parser.Options{}, false, nil), nil, nil)

	require.NoError(t, o.Submit(newTestJob("a.txt")))
	assert.Equal(t, 1, o.QueueDepth())

	second := newTestJob("b.txt")
	require.Error(t, o.Submit(second))
	snap := second.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "queue_full", snap.Phase)
	assert.Equal(t, 2, o.JobCount())

	o.Stop()
}
