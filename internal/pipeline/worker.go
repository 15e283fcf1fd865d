package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docgraph/internal/graph"
)

// Publisher exports a finished graph.
type Publisher interface {
	Publish(ctx context.Context, docID string, d *graph.Document) (int, error)
}

// Worker processes a single document job.
type Worker struct {
	proc *Processor
	pub  Publisher
	log  *slog.Logger
	wait func(int) time.Duration
}

// NewWorker creates a worker. pub may be nil when publishing is off.
func NewWorker(proc *Processor, pub Publisher, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Worker{proc: proc, pub: pub, log: log, wait: Backoff}
}

// Process runs the full pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)
	defer job.releaseFileData()

	out, err := w.proc.Run(ctx, Request{
		Filename:  job.Filename,
		Data:      job.FileData(),
		Params:    job.params,
		Analytics: job.analytics,
		OnPhase: func(s JobStatus) {
			job.SetStatus(s, string(s))
		},
	})
	if err != nil {
		log.Error("processing failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Snapshot().Phase)
		return
	}
	job.SetFragments(out.Fragments)
	job.SetResult(out.Doc, out.CacheHit)

	if w.pub != nil {
		job.SetStatus(StatusPublishing, "publishing")
		var n int
		err := retry(ctx, log, w.wait, func() error {
			var err error
			n, err = w.pub.Publish(ctx, job.DocID, out.Doc)
			return err
		})
		if err != nil {
			log.Error("publish failed", "error", err)
			job.AddError(fmt.Sprintf("publish: %s", err))
			job.SetStatus(StatusFailed, "publishing")
			return
		}
		job.SetPublished(n)
	}

	job.SetStatus(StatusCompleted, "done")
	log.Info("job complete", "nodes", job.Snapshot().Progress.Nodes, "cache_hit", out.CacheHit)
}
