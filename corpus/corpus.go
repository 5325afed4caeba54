// Package corpus builds, mutates, stores and loads seed corpora for the decode targets.
//
// A corpus directory holds one subdirectory per target:
//
//	<dir>/<target>/<name>
//
// Each file is a single raw input, exactly as it would be handed to the target's Fuzz function.
package corpus

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Truncate returns a copy of data with the last n bytes removed.
func Truncate(data []byte, n int) []byte {
	if n > len(data) {
		n = len(data)
	}
	if n < 0 {
		n = 0
	}
	out := make([]byte, len(data)-n)
	copy(out, data)
	return out
}

// FlipBits returns a copy of data with count bits flipped at positions drawn from r.
func FlipBits(data []byte, r *MathRandReader, count int) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	if len(out) == 0 {
		return out
	}
	for i := 0; i < count; i++ {
		pos := r.Intn(len(out) * 8)
		out[pos/8] ^= 1 << uint(pos%8)
	}
	return out
}

// Overwrite returns a copy of data with a span of up to maxLen bytes replaced by bytes read from r.
func Overwrite(data []byte, r *MathRandReader, maxLen int) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	if len(out) == 0 || maxLen <= 0 {
		return out
	}
	pos := r.Intn(len(out))
	n := 1 + r.Intn(maxLen)
	if pos+n > len(out) {
		n = len(out) - pos
	}
	io.ReadFull(r, out[pos:pos+n])
	return out
}

// Mutations derives n corrupted variants of sample, cycling through a truncation at a random
// length, a copy with a few flipped bits and a copy with a short span of random bytes. The same
// seed always produces the same variants.
func Mutations(sample []byte, seed int64, n int) [][]byte {
	r := NewMathRandReader(seed)
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		switch {
		case i%3 == 0 && len(sample) > 0:
			out = append(out, Truncate(sample, 1+r.Intn(len(sample))))
		case i%3 == 1:
			out = append(out, FlipBits(sample, r, 1+r.Intn(8)))
		default:
			out = append(out, Overwrite(sample, r, 16))
		}
	}
	return out
}

// Write stores data as <dir>/<target>/<name>, creating directories as needed.
func Write(dir, target, name string, data []byte) error {
	targetDir := filepath.Join(dir, target)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create corpus directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(targetDir, name), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", target, name, err)
	}
	return nil
}

// Entry is an input loaded from a corpus directory.
type Entry struct {
	Target string
	Path   string
	Data   []byte
}

// ReadFiles loads the regular files directly under dir as inputs for target, such as a go-fuzz
// crashers directory or a single target's directory of a corpus. Hidden files and the .output
// and .quoted companions go-fuzz writes next to each crasher are skipped. Entries are returned
// in path order.
func ReadFiles(dir, target string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, f := range files {
		name := f.Name()
		if !f.Type().IsRegular() || strings.HasPrefix(name, ".") ||
			strings.HasSuffix(name, ".output") || strings.HasSuffix(name, ".quoted") {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Target: target, Path: path, Data: data})
	}
	return entries, nil
}

// Load reads dir as a corpus tree if it has any target subdirectories, and otherwise with
// ReadFiles using the directory's name as the target.
func Load(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.IsDir() && !strings.HasPrefix(f.Name(), ".") {
			return Read(dir)
		}
	}
	return ReadFiles(dir, filepath.Base(dir))
}

// Read loads every input under dir, grouped by the target subdirectory they were found in. Files
// directly under dir and hidden files are skipped. Entries are returned in path order.
func Read(dir string) ([]Entry, error) {
	targets, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, td := range targets {
		if !td.IsDir() || strings.HasPrefix(td.Name(), ".") {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dir, td.Name()))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			path := filepath.Join(dir, td.Name(), f.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Target: td.Name(), Path: path, Data: data})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}
