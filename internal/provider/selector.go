package provider

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rshade/lcaprommis/internal/logging"
)

// Selection errors.
var (
	// ErrNoCandidates indicates the search found nothing to choose from.
	ErrNoCandidates = errors.New("no matching flow found")

	// ErrNoDecision indicates a selector has no opinion; ChainSelector moves
	// on to the next selector.
	ErrNoDecision = errors.New("selector made no decision")
)

// Selection is the outcome of a selector. When Skip is set the row gets no
// exchange.
type Selection struct {
	Candidate Candidate
	Skip      bool
}

// Selector picks a candidate for a query.
type Selector interface {
	Select(ctx context.Context, q Query, candidates []Candidate) (Selection, error)
}

// Pin fixes the flow and provider used for a flow name.
type Pin struct {
	Flow     string `yaml:"flow"     json:"flow"`
	Provider string `yaml:"provider" json:"provider"`
}

// PinnedSelector answers from configured pins, keyed by flow name.
type PinnedSelector struct {
	Index *Index
	Pins  map[string]Pin
}

// Select implements Selector.
func (s PinnedSelector) Select(_ context.Context, q Query, _ []Candidate) (Selection, error) {
	pin, ok := s.Pins[q.FlowName]
	if !ok {
		return Selection{}, ErrNoDecision
	}
	if s.Index == nil {
		return Selection{}, fmt.Errorf("pin for %q: no provider index", q.FlowName)
	}
	c, ok := s.Index.Find(pin.Flow, pin.Provider)
	if !ok {
		return Selection{}, fmt.Errorf("pin for %q: flow %s with provider %s not in database", q.FlowName, pin.Flow, pin.Provider)
	}
	return Selection{Candidate: c}, nil
}

// FirstSelector takes the best ranked candidate.
type FirstSelector struct{}

// Select implements Selector.
func (FirstSelector) Select(_ context.Context, q Query, candidates []Candidate) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, fmt.Errorf("%w for %q", ErrNoCandidates, q.FlowName)
	}
	return Selection{Candidate: candidates[0]}, nil
}

// PromptSelector shows a numbered menu and reads the choice. "s" skips the
// row.
type PromptSelector struct {
	In  io.Reader
	Out io.Writer
	// Limit caps the number of menu entries; 0 means 20.
	Limit int

	scanner *bufio.Scanner
}

const defaultMenuLimit = 20

// Select implements Selector.
func (s *PromptSelector) Select(ctx context.Context, q Query, candidates []Candidate) (Selection, error) {
	if s.scanner == nil {
		s.scanner = bufio.NewScanner(s.In)
	}
	limit := s.Limit
	if limit <= 0 {
		limit = defaultMenuLimit
	}
	shown := candidates
	if len(shown) > limit {
		shown = shown[:limit]
	}

	fmt.Fprintf(s.Out, "\nSelect a %s for %q:\n", kindLabel(q), q.FlowName)
	if len(shown) == 0 {
		fmt.Fprintln(s.Out, "  (no matches)")
	}
	for i, c := range shown {
		fmt.Fprintf(s.Out, "  %2d) %s\n", i+1, c.Label())
	}
	if len(candidates) > len(shown) {
		fmt.Fprintf(s.Out, "  ... %d more not shown\n", len(candidates)-len(shown))
	}

	for {
		if err := ctx.Err(); err != nil {
			return Selection{}, err
		}
		fmt.Fprint(s.Out, "Choice (number, s to skip): ")
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return Selection{}, fmt.Errorf("reading choice: %w", err)
			}
			return Selection{}, fmt.Errorf("reading choice: %w", io.ErrUnexpectedEOF)
		}
		answer := strings.ToLower(strings.TrimSpace(s.scanner.Text()))
		if answer == "s" || answer == "skip" {
			logging.FromContext(ctx).Info().Str("flow", q.FlowName).Msg("row skipped by user")
			return Selection{Skip: true}, nil
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(shown) {
			fmt.Fprintf(s.Out, "Enter a number between 1 and %d, or s.\n", len(shown))
			continue
		}
		return Selection{Candidate: shown[n-1]}, nil
	}
}

func kindLabel(q Query) string {
	if strings.Contains(strings.ToLower(string(q.FlowType)), "waste") {
		return "waste flow"
	}
	return "product flow"
}

// ChainSelector asks each selector in turn until one decides.
type ChainSelector []Selector

// Select implements Selector.
func (c ChainSelector) Select(ctx context.Context, q Query, candidates []Candidate) (Selection, error) {
	for _, s := range c {
		sel, err := s.Select(ctx, q, candidates)
		if errors.Is(err, ErrNoDecision) {
			continue
		}
		return sel, err
	}
	return Selection{}, fmt.Errorf("%w for %q", ErrNoCandidates, q.FlowName)
}
