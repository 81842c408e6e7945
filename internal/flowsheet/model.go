package flowsheet

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rshade/lcaprommis/internal/flowtable"
	"github.com/rshade/lcaprommis/internal/logging"
)

// ProcessModel produces a finalized flow table for a set of inputs.
type ProcessModel interface {
	Run(ctx context.Context, inputs map[string]float64) (*flowtable.Table, error)
}

// TableModel always returns the same flow table. It stands in for a
// simulation whose results were exported once.
type TableModel struct {
	Table *flowtable.Table
}

// Run returns the table; inputs are ignored.
func (m TableModel) Run(context.Context, map[string]float64) (*flowtable.Table, error) {
	if m.Table == nil {
		return nil, flowtable.ErrEmptyTable
	}
	return m.Table, nil
}

// DefaultExecTimeout bounds one run of an external model.
const DefaultExecTimeout = 10 * time.Minute

// ExecModel runs an external simulation once per evaluation. The command
// reads {"inputs": {name: value}} as JSON on stdin and writes a flow table
// CSV to stdout.
type ExecModel struct {
	Path string
	Args []string
	Dir  string
	// Env is appended to the current environment.
	Env     []string
	Timeout time.Duration
}

type execRequest struct {
	Inputs map[string]float64 `json:"inputs"`
}

// Run executes the command and parses its output.
func (m ExecModel) Run(ctx context.Context, inputs map[string]float64) (*flowtable.Table, error) {
	if m.Path == "" {
		return nil, errors.New("model command is empty")
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(execRequest{Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("encoding model inputs: %w", err)
	}

	log := logging.FromContext(ctx)
	cmd := exec.CommandContext(ctx, m.Path, m.Args...)
	cmd.Dir = m.Dir
	cmd.Env = append(os.Environ(), m.Env...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	runErr := cmd.Run()

	sc := bufio.NewScanner(&stderr)
	for sc.Scan() {
		log.Debug().Str("component", "flowsheet").Str("model", m.Path).Msg(sc.Text())
	}
	if runErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("model %s: %w", m.Path, ctx.Err())
		}
		return nil, fmt.Errorf("model %s: %w: %s", m.Path, runErr, lastLine(stderr.String()))
	}
	log.Debug().
		Str("component", "flowsheet").
		Str("model", m.Path).
		Dur("duration", time.Since(start)).
		Msg("model finished")

	tbl, err := flowtable.Read(&stdout)
	if err != nil {
		return nil, fmt.Errorf("model %s output: %w", m.Path, err)
	}
	return tbl, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
