package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docgraph/internal/cache"
	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/element"
	"github.com/dgallion1/docgraph/internal/graph"
	"github.com/dgallion1/docgraph/internal/parser"
	"github.com/dgallion1/docgraph/internal/pipeline"
)

// ParseCmd structures one or more documents and writes their graphs.
type ParseCmd struct {
	Inputs []string `arg:"" type:"existingfile" help:"Documents to parse (.pdf .docx .md .html .txt .csv)"`

	DocType          string `short:"t" default:"generic" help:"Parameter preset to use"`
	Config           string `type:"existingfile" help:"YAML file with parsing overrides"`
	Format           string `short:"f" default:"graph" enum:"graph,sequential,flat" help:"Output view (graph, sequential, flat)"`
	Output           string `short:"o" type:"path" help:"Output file, or directory when several inputs are given"`
	MinimalParse     bool   `help:"Skip structure detection and emit one paragraph per fragment"`
	IncludeStyleInfo bool   `help:"Attach font and position data to nodes"`
	Analytics        bool   `help:"Attach structure analytics to the output"`
	Cache            string `type:"path" help:"SQLite graph cache (default $DOCGRAPH_CACHE)"`
	SkipCache        bool   `help:"Ignore cached graphs"`
	PDFFallback      bool   `default:"true" negatable:"" help:"Fall back to pdftotext when a PDF yields no text"`
	DumpStages       string `type:"path" help:"Write the elements after every rule to this directory (implies --skip-cache)"`
	Profile          bool   `help:"Print per-rule timings to stderr"`
	Jobs             int    `short:"j" default:"4" help:"Documents processed concurrently"`
	Verbose          bool   `short:"v" help:"Log progress to stderr"`
}

type parsed struct {
	input string
	out   *pipeline.Outcome
}

// Run executes the parse command.
func (c *ParseCmd) Run(deps *Dependencies) error {
	log := deps.logger(c.Verbose)

	params, err := c.params()
	if err != nil {
		return err
	}
	format, err := graph.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	var store cache.Store
	if path := c.cachePath(deps); path != "" {
		sqlite, err := cache.Open(path)
		if err != nil {
			return fmt.Errorf("open graph cache: %w", err)
		}
		defer sqlite.Close()
		store = sqlite
	}
	proc := pipeline.NewProcessor(store, parser.Options{PDFFallback: c.PDFFallback}, c.IncludeStyleInfo, log)
	// Cached graphs never run the rules, so there would be no stages to dump.
	skipCache := c.SkipCache || c.DumpStages != ""

	results := make([]parsed, len(c.Inputs))
	g, ctx := errgroup.WithContext(deps.Ctx)
	g.SetLimit(max(c.Jobs, 1))
	for i, input := range c.Inputs {
		g.Go(func() error {
			data, err := os.ReadFile(input)
			if err != nil {
				return err
			}
			req := pipeline.Request{
				Filename:  filepath.Base(input),
				Data:      data,
				Params:    params,
				Analytics: c.Analytics,
				SkipCache: skipCache,
			}
			var dump *stageDump
			if c.DumpStages != "" {
				dump = &stageDump{dir: filepath.Join(c.DumpStages, stem(input))}
				req.Observer = dump.observe
			}
			out, err := proc.Run(ctx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			if dump != nil && dump.err != nil {
				return fmt.Errorf("%s: dump stages: %w", input, dump.err)
			}
			log.Debug("parsed document", "input", input, "nodes", countNodes(out.Doc.Root), "cache_hit", out.CacheHit)
			results[i] = parsed{input: input, out: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if c.Profile {
		printProfile(deps.Stderr, results)
	}
	return c.write(deps.Stdout, results, format, log)
}

func (c *ParseCmd) params() (config.Parsing, error) {
	var overrides *config.File
	if c.Config != "" {
		f, err := config.LoadFile(c.Config)
		if err != nil {
			return config.Parsing{}, err
		}
		overrides = f
	}
	p, err := config.Resolve(config.DocumentType(c.DocType), overrides)
	if err != nil {
		return config.Parsing{}, err
	}
	if c.MinimalParse {
		p = p.MinimalOnly()
	}
	return p, nil
}

func (c *ParseCmd) cachePath(deps *Dependencies) string {
	if c.Cache != "" {
		return c.Cache
	}
	return deps.CachePath
}

// write emits results in input order. Several inputs go either to stdout
// one after another or to one file each under the output directory.
func (c *ParseCmd) write(stdout io.Writer, results []parsed, format graph.Format, log *slog.Logger) error {
	switch {
	case c.Output == "":
		for _, r := range results {
			if err := graph.Write(stdout, r.out.Doc, format); err != nil {
				return err
			}
		}
		return nil
	case len(results) == 1:
		return writeFile(c.Output, results[0].out.Doc, format)
	}

	if err := os.MkdirAll(c.Output, 0o755); err != nil {
		return err
	}
	for _, r := range results {
		path := filepath.Join(c.Output, stem(r.input)+".json")
		if err := writeFile(path, r.out.Doc, format); err != nil {
			return err
		}
		log.Info("wrote graph", "path", path)
	}
	return nil
}

func writeFile(path string, doc *graph.Document, format graph.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := graph.Write(f, doc, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printProfile(w io.Writer, results []parsed) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range results {
		if r.out.CacheHit {
			fmt.Fprintf(tw, "%s\t(cached)\t\t\t\n", r.input)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d fragments\t\t\t\n", r.input, r.out.Fragments)
		for _, st := range r.out.Trace {
			fmt.Fprintf(tw, "\t%s\t%d\t%d\t%s\n", st.Rule, st.In, st.Out, st.Duration)
			if st.Report != nil {
				fmt.Fprintf(tw, "\t  quality %.2f\t%d issues\t\t\n", st.Report.QualityScore, len(st.Report.Issues))
			}
		}
	}
	tw.Flush()
}

// stageDump writes each stage's elements to dir/NN-rule.json.
type stageDump struct {
	dir string
	err error
}

func (d *stageDump) observe(stage int, rule string, out []element.ParsedElement) {
	if d.err != nil {
		return
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		d.err = err
		return
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		d.err = err
		return
	}
	name := fmt.Sprintf("%02d-%s.json", stage, rule)
	d.err = os.WriteFile(filepath.Join(d.dir, name), data, 0o644)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func countNodes(n *graph.Node) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += countNodes(c)
	}
	return total
}
