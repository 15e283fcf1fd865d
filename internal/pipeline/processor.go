package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgallion1/docgraph/internal/cache"
	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/graph"
	"github.com/dgallion1/docgraph/internal/parser"
)

// Request is one document to turn into a graph.
type Request struct {
	Filename  string
	Data      []byte
	Params    config.Parsing
	Analytics bool
	SkipCache bool
	Observer  Observer
	OnPhase   func(JobStatus)
}

// Outcome is the result of processing one document.
type Outcome struct {
	Doc       *graph.Document
	Trace     []StageTrace
	Fragments int
	CacheHit  bool
}

// ExtractError reports a document whose content could not be read.
type ExtractError struct {
	Filename string
	Err      error
}

func (e *ExtractError) Error() string { return fmt.Sprintf("extract %s: %v", e.Filename, e.Err) }

func (e *ExtractError) Unwrap() error { return e.Err }

// Processor takes raw documents through extraction, the rule pipeline and
// assembly, consulting the graph cache first.
type Processor struct {
	cache        cache.Store
	extract      parser.Options
	includeStyle bool
	log          *slog.Logger

	mu        sync.Mutex
	executors map[string]*Executor
}

// NewProcessor creates a processor. store may be nil to disable caching.
func NewProcessor(store cache.Store, extract parser.Options, includeStyle bool, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Processor{
		cache:        store,
		extract:      extract,
		includeStyle: includeStyle,
		log:          log,
		executors:    map[string]*Executor{},
	}
}

// executor returns the shared executor for a parameter set.
func (p *Processor) executor(params config.Parsing) (*Executor, error) {
	fp := params.Fingerprint()
	p.mu.Lock()
	defer p.mu.Unlock()
	if x, ok := p.executors[fp]; ok {
		return x, nil
	}
	x, err := NewExecutor(params, p.log)
	if err != nil {
		return nil, err
	}
	p.executors[fp] = x
	return x, nil
}

// Run processes one document.
func (p *Processor) Run(ctx context.Context, req Request) (*Outcome, error) {
	phase := func(s JobStatus) {
		if req.OnPhase != nil {
			req.OnPhase(s)
		}
	}
	log := p.log.With("filename", req.Filename, "doc_type", req.Params.DocumentType)

	phase(StatusExtracting)
	kind, err := parser.Kind(req.Filename, p.extract)
	if err != nil {
		return nil, err
	}
	key := cache.Key(req.Data, kind, req.Params, p.includeStyle)
	if p.cache != nil && !req.SkipCache {
		doc, ok, err := p.cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn("cache lookup failed, proceeding", "error", err)
		case ok:
			log.Info("cache hit")
			if req.Analytics {
				doc.Analytics = doc.Analyze()
			}
			return &Outcome{Doc: doc, CacheHit: true}, nil
		}
	}

	ex, err := parser.ForFile(req.Filename, p.extract)
	if err != nil {
		return nil, err
	}
	extraction, err := ex.Extract(bytes.NewReader(req.Data), req.Filename)
	if err != nil {
		return nil, &ExtractError{Filename: req.Filename, Err: err}
	}
	log.Info("extracted document", "extractor", kind, "fragments", len(extraction.Elements))

	phase(StatusStructuring)
	x, err := p.executor(req.Params)
	if err != nil {
		return nil, err
	}
	opts := graph.Options{IncludeStyle: p.includeStyle, Title: extraction.Title}
	doc, trace, err := x.Process(ctx, extraction.Elements, opts, req.Observer)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Put(ctx, key, doc); err != nil {
			log.Warn("cache store failed", "error", err)
		}
	}
	if req.Analytics {
		doc.Analytics = doc.Analyze()
	}
	return &Outcome{Doc: doc, Trace: trace, Fragments: len(extraction.Elements)}, nil
}
