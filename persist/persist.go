// Package persist implements the optional flat-text persisted-state
// format: one expanded path per line, followed by a trailing line
// carrying the 0-based selection index (or a negative value for no
// selection).
package persist

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// State is the decoded form of the persisted format.
type State struct {
	ExpandedPaths []string
	SelectedIndex int // negative means no selection
}

// HasSelection reports whether SelectedIndex refers to a real entry in
// ExpandedPaths.
func (s State) HasSelection() bool {
	return s.SelectedIndex >= 0 && s.SelectedIndex < len(s.ExpandedPaths)
}

// SelectedPath returns the path named by SelectedIndex, if any.
func (s State) SelectedPath() (string, bool) {
	if !s.HasSelection() {
		return "", false
	}
	return s.ExpandedPaths[s.SelectedIndex], true
}

// Write encodes state as one expanded path per line in the order given,
// followed by one trailing line carrying the selection index.
func Write(w io.Writer, state State) error {
	bw := bufio.NewWriter(w)
	for _, p := range state.ExpandedPaths {
		if _, err := fmt.Fprintln(bw, p); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(bw, state.SelectedIndex); err != nil {
		return err
	}
	return bw.Flush()
}

// Read decodes the flat-text format. Unknown trailing garbage beyond the
// selection-index line is discarded; a line that cannot be parsed as the
// selection index (e.g. a missing trailer on a truncated file) yields
// SelectedIndex -1 rather than an error, matching the "unknown lines are
// discarded on read" contract.
func Read(r io.Reader) (State, error) {
	sc := bufio.NewScanner(r)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return State{}, err
	}
	if len(lines) == 0 {
		return State{SelectedIndex: -1}, nil
	}

	// The selection index is the last line that parses as an integer;
	// lines after it are discarded.
	for i := len(lines) - 1; i >= 0; i-- {
		if idx, err := strconv.Atoi(strings.TrimSpace(lines[i])); err == nil {
			return State{ExpandedPaths: lines[:i], SelectedIndex: idx}, nil
		}
	}
	// No valid trailer: treat every line as an expanded path and assume
	// no selection, rather than failing the whole read.
	return State{ExpandedPaths: lines, SelectedIndex: -1}, nil
}
