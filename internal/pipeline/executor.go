package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/element"
	"github.com/dgallion1/docgraph/internal/graph"
	"github.com/dgallion1/docgraph/internal/rules"
)

// StageTrace records one rule application.
type StageTrace struct {
	Rule     string        `json:"rule"`
	In       int           `json:"in"`
	Out      int           `json:"out"`
	Duration time.Duration `json:"duration_ns"`
	Report   *rules.Report `json:"report,omitempty"`
}

// Observer sees the output of every stage. Stage 0 is the initial
// conversion from fragments.
type Observer func(stage int, rule string, out []element.ParsedElement)

// Executor runs a fixed rule sequence over documents. It is safe for
// concurrent use.
type Executor struct {
	cfg   config.Parsing
	rules []rules.Rule
	log   *slog.Logger
}

// NewExecutor builds the rule sequence for cfg once.
func NewExecutor(cfg config.Parsing, log *slog.Logger) (*Executor, error) {
	rs, err := rules.Build(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Executor{cfg: cfg, rules: rs, log: log}, nil
}

// Rules returns the names of the rules in execution order.
func (x *Executor) Rules() []string {
	names := make([]string, len(x.rules))
	for i, r := range x.rules {
		names[i] = r.Name()
	}
	return names
}

// Run converts fragments to elements in reading order and threads them
// through every rule.
func (x *Executor) Run(ctx context.Context, frags []element.TextElement, obs Observer) ([]element.ParsedElement, []StageTrace, error) {
	sorted := element.SortTextElements(frags)
	els := make([]element.ParsedElement, len(sorted))
	for i, f := range sorted {
		els[i] = element.FromText(f, x.cfg.Depth.StartingSectionLevel)
	}
	if obs != nil {
		obs(0, "Input", els)
	}

	trace := make([]StageTrace, 0, len(x.rules))
	for i, r := range x.rules {
		start := time.Now()
		var rep *rules.Report
		if ins, ok := r.(rules.Inspector); ok {
			rep = ins.Inspect(els)
		}
		out, err := r.Apply(ctx, els)
		if err != nil {
			var re *rules.RuleError
			if !errors.As(err, &re) {
				err = &rules.RuleError{Rule: r.Name(), Err: err}
			}
			return nil, trace, err
		}
		st := StageTrace{Rule: r.Name(), In: len(els), Out: len(out), Duration: time.Since(start), Report: rep}
		trace = append(trace, st)
		x.log.Debug("rule applied", "rule", st.Rule, "in", st.In, "out", st.Out, "duration", st.Duration)
		if rep != nil && len(rep.Issues) > 0 {
			x.log.Debug("structural issues", "rule", st.Rule, "issues", len(rep.Issues), "quality_score", rep.QualityScore)
		}
		if obs != nil {
			obs(i+1, r.Name(), out)
		}
		els = out
	}
	return els, trace, nil
}

// Process runs the rules and assembles the graph.
func (x *Executor) Process(ctx context.Context, frags []element.TextElement, opts graph.Options, obs Observer) (*graph.Document, []StageTrace, error) {
	els, trace, err := x.Run(ctx, frags, obs)
	if err != nil {
		return nil, trace, err
	}
	doc, err := graph.Assemble(els, x.cfg, opts)
	if err != nil {
		return nil, trace, fmt.Errorf("assemble: %w", err)
	}
	for _, st := range trace {
		if st.Report != nil {
			doc.Validation = st.Report
		}
	}
	return doc, trace, nil
}
