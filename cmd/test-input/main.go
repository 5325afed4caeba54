// Command test-input replays inputs against the decode targets. This is mostly useful for
// checking crashers and for confirming that a corpus directory decodes without timeouts.
//
// The path may name a single input file, a corpus directory laid out as <dir>/<target>/<name>, or
// a directory of inputs such as go-fuzz's workdir/crashers or one target's corpus directory. The
// target is taken from --target, or else from the name of the directory holding each input. A
// --target of "all" runs every input through every target.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/getlantern/decodefuzz"
	"github.com/getlantern/decodefuzz/corpus"
	"github.com/getlantern/decodefuzz/drivers"
	"github.com/getlantern/decodefuzz/internal/util"
)

const allTargets = "all"

var (
	pathFlag = &cli.StringFlag{
		Name:     "path",
		Usage:    "path to an input or corpus directory, probably something like workdir/crashers",
		Required: true,
	}
	targetFlag = &cli.StringFlag{
		Name:  "target",
		Usage: "target to run inputs through, or \"all\"",
	}
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML file with harness limits (max_pixels, scratch_budget, max_steps)",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Value: 10 * time.Second,
		Usage: "time allowed for each attempt",
	}
	parallelFlag = &cli.IntFlag{
		Name:  "parallel",
		Value: 4,
		Usage: "number of attempts run at once",
	}
	verboseFlag = &cli.BoolFlag{
		Name:  "verbose",
		Usage: "print the outcome of every input",
	}
)

type input struct {
	target decodefuzz.Target
	path   string
	data   []byte
}

type result struct {
	input
	res     decodefuzz.Result
	timeout bool
}

func loadConfig(path string) (decodefuzz.Config, error) {
	var cfg decodefuzz.Config
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown config keys: %v", undecoded)
	}
	return cfg, nil
}

// resolve maps a target name to the targets it stands for.
func resolve(name string) ([]decodefuzz.Target, error) {
	if name == allTargets {
		return drivers.Targets, nil
	}
	t, ok := drivers.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown target %q; expected one of %v or %q", name, drivers.Names(), allTargets)
	}
	return []decodefuzz.Target{t}, nil
}

func loadInputs(path, targetName string) ([]input, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if !fi.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		if targetName == "" {
			targetName = filepath.Base(filepath.Dir(path))
		}
		targets, err := resolve(targetName)
		if err != nil {
			return nil, err
		}
		inputs := make([]input, 0, len(targets))
		for _, t := range targets {
			inputs = append(inputs, input{t, path, data})
		}
		return inputs, nil
	}

	entries, err := corpus.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	var inputs []input
	for _, e := range entries {
		name := e.Target
		if targetName != "" {
			name = targetName
		}
		targets, err := resolve(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Path, err)
		}
		for _, t := range targets {
			inputs = append(inputs, input{t, e.Path, e.Data})
		}
	}
	return inputs, nil
}

// replay runs every input, at most parallel at a time. Results are returned in input order.
func replay(ctx context.Context, h *decodefuzz.Harness, inputs []input, parallel int, timeout time.Duration) ([]result, error) {
	results := make([]result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			res, err := util.AttemptContext(attemptCtx, h, in.target, in.data)
			var timeoutErr util.TimeoutError
			switch {
			case errors.As(err, &timeoutErr):
				results[i] = result{input: in, timeout: true}
			case err != nil:
				return err
			default:
				results[i] = result{input: in, res: res}
			}
			return nil
		})
	}
	return results, g.Wait()
}

// summarize writes a table of outcome counts per target and returns the number of timeouts.
func summarize(w io.Writer, results []result, verbose bool) int {
	type counts struct{ rejected, succeeded, aborted, timeouts int }
	byTarget := map[string]*counts{}
	total := &counts{}
	for _, r := range results {
		c := byTarget[r.target.Name()]
		if c == nil {
			c = &counts{}
			byTarget[r.target.Name()] = c
		}
		for _, c := range []*counts{c, total} {
			switch {
			case r.timeout:
				c.timeouts++
			case r.res.Outcome == decodefuzz.Succeeded:
				c.succeeded++
			case r.res.Outcome == decodefuzz.Aborted:
				c.aborted++
			default:
				c.rejected++
			}
		}

		switch {
		case r.timeout:
			fmt.Fprintf(w, "%s [%s]: timed out\n", r.path, r.target.Name())
		case r.res.Outcome == decodefuzz.Aborted:
			fmt.Fprintf(w, "%s [%s]: %v\n", r.path, r.target.Name(), r.res.Err)
			var abortErr *decodefuzz.AbortError
			if verbose && errors.As(r.res.Err, &abortErr) {
				fmt.Fprintf(w, "%s\n", abortErr.Stack)
			}
		case verbose:
			fmt.Fprintf(w, "%s [%s]: %s after %d steps (%v)\n",
				r.path, r.target.Name(), r.res.Outcome, r.res.Steps, r.res.Err)
		}
	}

	names := make([]string, 0, len(byTarget))
	for name := range byTarget {
		names = append(names, name)
	}
	sort.Strings(names)

	row := func(name string, c *counts) []string {
		return []string{
			name,
			strconv.Itoa(c.rejected),
			strconv.Itoa(c.succeeded),
			strconv.Itoa(c.aborted),
			strconv.Itoa(c.timeouts),
		}
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Target", "Rejected", "Succeeded", "Aborted", "Timeouts"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, name := range names {
		table.Append(row(name, byTarget[name]))
	}
	table.SetFooter(row("total", total))
	table.Render()
	return total.timeouts
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c.String(configFlag.Name))
	if err != nil {
		return err
	}
	inputs, err := loadInputs(c.String(pathFlag.Name), c.String(targetFlag.Name))
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return errors.New("no inputs found")
	}

	h := decodefuzz.New(cfg)
	results, err := replay(c.Context, h, inputs, c.Int(parallelFlag.Name), c.Duration(timeoutFlag.Name))
	if err != nil {
		return err
	}
	if timeouts := summarize(c.App.Writer, results, c.Bool(verboseFlag.Name)); timeouts > 0 {
		return cli.Exit(fmt.Sprintf("%d inputs timed out", timeouts), 2)
	}
	if s := h.Stats(); s.Allocs != s.Frees || s.Opened != s.Released {
		fmt.Fprintf(c.App.ErrWriter, "unbalanced harness stats: %+v\n", s)
	}
	return nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "test-input",
		Usage: "replay inputs against the decode targets",
		Flags: []cli.Flag{
			pathFlag, targetFlag, configFlag, timeoutFlag, parallelFlag, verboseFlag,
		},
		Action: run,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		var exitErr cli.ExitCoder
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
