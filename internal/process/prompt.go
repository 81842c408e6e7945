package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rshade/lcaprommis/internal/flowtable"
)

// Prompter decides what happens after a row failed. Retry returns true to
// build the row again and false to leave it out. A non-nil error aborts the
// whole build.
type Prompter interface {
	Retry(ctx context.Context, row flowtable.Row, cause error) (bool, error)
}

// FailPrompter never retries: the row's error fails the build. It is used
// when stdin is not a terminal.
type FailPrompter struct{}

// Retry implements Prompter.
func (FailPrompter) Retry(_ context.Context, row flowtable.Row, cause error) (bool, error) {
	return false, fmt.Errorf("row %d (%s): %w", row.Number, row.FlowName, cause)
}

// TerminalPrompter asks "Try again? [y/N]" after each failure. Anything
// other than y/yes leaves the row out.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer

	scanner *bufio.Scanner
}

// Retry implements Prompter.
func (p *TerminalPrompter) Retry(_ context.Context, row flowtable.Row, cause error) (bool, error) {
	if p.scanner == nil {
		p.scanner = bufio.NewScanner(p.In)
	}
	fmt.Fprintf(p.Out, "\nRow %d (%s) failed: %v\n", row.Number, row.FlowName, cause)
	fmt.Fprint(p.Out, "? Try again? [y/N] ")

	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return false, fmt.Errorf("reading answer: %w", err)
		}
		return false, fmt.Errorf("row %d (%s): %w", row.Number, row.FlowName, cause)
	}
	switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
	case "y", "yes":
		return true, nil
	default:
		fmt.Fprintf(p.Out, "Skipping %s.\n", row.FlowName)
		return false, nil
	}
}
