// Package tally counts per-function alias results from a stats file.
//
// Each non-blank line holds two whitespace-separated tokens: a function
// name and an alias result label. Function names are NFC-normalized so
// that differently composed spellings of the same name share one count.
package tally

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// LineError describes one malformed line.
type LineError struct {
	Line int
	Text string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: want 2 fields, got %d: %q", e.Line, len(strings.Fields(e.Text)), e.Text)
}

// Tally holds occurrence counts. Each occurrence counts once, so a function
// seen on one line has count 1.
type Tally struct {
	Functions map[string]int            `json:"functions"`
	ByLabel   map[string]map[string]int `json:"by_label,omitempty"`
	Lines     int                       `json:"lines"`
}

// Count reads r and tallies every well-formed line. Malformed lines are
// skipped and reported together in the returned error, each as a
// *LineError; the tally of the good lines is returned either way.
func Count(r io.Reader) (*Tally, error) {
	t := &Tally{
		Functions: map[string]int{},
		ByLabel:   map[string]map[string]int{},
	}

	var errs []error
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		text := sc.Text()
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			errs = append(errs, &LineError{Line: n, Text: text})
			continue
		}

		fn := norm.NFC.String(fields[0])
		label := fields[1]
		t.Functions[fn]++
		if t.ByLabel[fn] == nil {
			t.ByLabel[fn] = map[string]int{}
		}
		t.ByLabel[fn][label]++
		t.Lines++
	}
	if err := sc.Err(); err != nil {
		return t, fmt.Errorf("read stats: %w", err)
	}
	return t, errors.Join(errs...)
}

// Names returns the function names in sorted order.
func (t *Tally) Names() []string {
	names := make([]string, 0, len(t.Functions))
	for name := range t.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteText prints one "name count" line per function, sorted by name.
// With byLabel, each function is followed by an indented line per label.
func (t *Tally) WriteText(w io.Writer, byLabel bool) error {
	for _, name := range t.Names() {
		if _, err := fmt.Fprintf(w, "%s %d\n", name, t.Functions[name]); err != nil {
			return err
		}
		if !byLabel {
			continue
		}
		labels := make([]string, 0, len(t.ByLabel[name]))
		for label := range t.ByLabel[name] {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			if _, err := fmt.Fprintf(w, "  %-14s %d\n", label, t.ByLabel[name][label]); err != nil {
				return err
			}
		}
	}
	return nil
}
