// Package rules holds the pipeline stages. Each stage is a pure transform
// from one element sequence to a new one.
package rules

import (
	"context"
	"fmt"
	"runtime"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/element"
	"golang.org/x/sync/errgroup"
)

// Rule is one pipeline stage.
type Rule interface {
	Name() string
	Apply(ctx context.Context, in []element.ParsedElement) ([]element.ParsedElement, error)
}

// RuleError identifies the stage that failed.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string { return fmt.Sprintf("rule %s: %v", e.Rule, e.Err) }

func (e *RuleError) Unwrap() error { return e.Err }

// OrderingError reports a reading-order inversion at Index.
type OrderingError struct {
	Index int
	Prev  element.Key
	Key   element.Key
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("reading order inversion at element %d: %+v precedes %+v", e.Index, e.Prev, e.Key)
}

// Build turns the enabled pipeline entries into rules, in order.
func Build(cfg config.Parsing) ([]Rule, error) {
	var out []Rule
	for i, spec := range cfg.Pipeline {
		if !spec.Enabled {
			continue
		}
		var r Rule
		switch spec.Name {
		case config.RuleSectionDetection:
			r = NewSectionDetection(cfg)
		case config.RulePatternSectionDetection:
			r = NewPatternDetection(cfg)
		case config.RuleSpatialClustering:
			r = NewSpatialClustering(cfg)
		case config.RuleMinimalParse:
			r = MinimalParse{}
		case config.RuleValidation:
			r = NewValidation(cfg)
		default:
			return nil, &config.Error{
				Field:  fmt.Sprintf("pipeline[%d]", i),
				Reason: fmt.Sprintf("unknown rule %q", spec.Name),
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// MinimalParse passes elements through unchanged.
type MinimalParse struct{}

func (MinimalParse) Name() string { return config.RuleMinimalParse }

func (MinimalParse) Apply(_ context.Context, in []element.ParsedElement) ([]element.ParsedElement, error) {
	out := make([]element.ParsedElement, len(in))
	copy(out, in)
	return out, nil
}

// assignContentLevels places every non-section element one level below the
// nearest preceding section.
func assignContentLevels(in []element.ParsedElement, cfg config.Parsing) []element.ParsedElement {
	out := make([]element.ParsedElement, len(in))
	current := 0
	for i, e := range in {
		if e.Type == element.TypeSection {
			current = e.Level
			out[i] = e
			continue
		}
		level := cfg.Depth.StartingSectionLevel
		if current > 0 {
			level = cfg.ClampLevel(current + 1)
		}
		out[i] = e.With(e.Type, level)
	}
	return out
}

const blockSize = 256

// forEachBlock runs fn over index ranges concurrently. fn must only write to
// its own indices.
func forEachBlock(ctx context.Context, n int, fn func(lo, hi int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for lo := 0; lo < n; lo += blockSize {
		hi := min(lo+blockSize, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(lo, hi)
			return nil
		})
	}
	return g.Wait()
}
