// Command start-corpus generates the initial fuzzing corpus.
//
// For every target it writes the valid samples from the corpus package, a magic-only copy of each
// sample and a number of deterministic mutations (truncations and bit flips). Files are laid out
// as <output-dir>/<target>/<name>, and a README.md describing the run is written alongside.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"

	"github.com/getlantern/decodefuzz/corpus"
	"github.com/getlantern/decodefuzz/drivers"
)

var (
	outputDirFlag = &cli.StringFlag{
		Name:  "output-dir",
		Value: "corpus",
		Usage: "the output directory for the initial corpus",
	}
	seedFlag = &cli.Int64Flag{
		Name:  "seed",
		Value: 1,
		Usage: "seed for the mutations; the same seed always produces the same corpus",
	}
	mutationsFlag = &cli.IntFlag{
		Name:  "mutations",
		Value: 16,
		Usage: "number of mutated variants written per sample",
	}
)

// report summarizes a generation run. It is dumped into the README.
type report struct {
	Seed      int64
	Mutations int
	Files     map[string]int
	Bytes     map[string]int
}

// magicLen is the size of the magic-only variant of a sample.
func magicLen(target string) int {
	n := 8
	if t, ok := drivers.Lookup(target); ok && t.MinHeaderLen() > n {
		n = t.MinHeaderLen()
	}
	return n
}

func startCorpus(dir string, seed int64, mutations int) (*report, error) {
	samples, err := corpus.Samples()
	if err != nil {
		return nil, err
	}
	r := &report{Seed: seed, Mutations: mutations, Files: map[string]int{}, Bytes: map[string]int{}}
	write := func(target, name string, data []byte) error {
		if err := corpus.Write(dir, target, name, data); err != nil {
			return err
		}
		r.Files[target]++
		r.Bytes[target] += len(data)
		return nil
	}

	for i, s := range samples {
		if _, ok := drivers.Lookup(s.Target); !ok {
			return nil, fmt.Errorf("sample %s/%s has no target", s.Target, s.Name)
		}
		if err := write(s.Target, s.Name, s.Data); err != nil {
			return nil, err
		}
		if n := magicLen(s.Target); n < len(s.Data) {
			if err := write(s.Target, s.Name+"-magic", s.Data[:n]); err != nil {
				return nil, err
			}
		}
		for j, m := range corpus.Mutations(s.Data, seed+int64(i), mutations) {
			if err := write(s.Target, fmt.Sprintf("%s-mut%03d", s.Name, j), m); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func writeReadme(w io.Writer, r *report) error {
	targets := make([]string, 0, len(r.Files))
	for t := range r.Files {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	_, err := fmt.Fprintf(w, "# Seed corpus\n\nGenerated by start-corpus for %d targets: %v.\n\n```\n%s```\n",
		len(targets), targets, spew.Sdump(r))
	return err
}

func run(c *cli.Context) error {
	dir := c.String(outputDirFlag.Name)
	r, err := startCorpus(dir, c.Int64(seedFlag.Name), c.Int(mutationsFlag.Name))
	if err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, "README.md"))
	if err != nil {
		return fmt.Errorf("failed to create README: %w", err)
	}
	defer f.Close()
	if err := writeReadme(f, r); err != nil {
		return fmt.Errorf("failed to write README: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "wrote corpus to %s\n", dir)
	return nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "start-corpus",
		Usage:  "generate the initial fuzzing corpus",
		Flags:  []cli.Flag{outputDirFlag, seedFlag, mutationsFlag},
		Action: run,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
