package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"sync"

	"raceloom/internal/raceerr"
)

// wireInput/wireOutput mirror the newline-delimited JSON protocol spoken
// with the Maude driver subprocess: one input line per batch entry, one
// output line per result, a blank line terminating each layer's exchange.
type wireInput struct {
	ID       int    `json:"id"`
	PrevKind string `json:"prevKind"`
	Expr     string `json:"expr"`
}

type wireOutput struct {
	ID            int    `json:"id"`
	SuccessorKind string `json:"successorKind,omitempty"`
	Label         string `json:"label,omitempty"`
	Expr          string `json:"expr,omitempty"`
	Error         string `json:"error,omitempty"`
}

// MaudeEngine drives a small Maude driver subprocess (built against the
// model's module at startup) over its stdin/stdout, one request/response
// round per generator layer — grounded on the original tool's
// maude.init/maude.load/term.erewrite() choreography, translated to an
// explicit request/response protocol since Go has no native Maude binding.
type MaudeEngine struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

// NewMaudeEngine starts driverPath (a Maude driver script/binary) with
// modulePath as its argument and returns an Engine once the subprocess is
// ready to accept layers.
func NewMaudeEngine(ctx context.Context, driverPath, modulePath string) (*MaudeEngine, error) {
	cmd := exec.CommandContext(ctx, driverPath, modulePath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, raceerr.NewEngineError("could not open engine stdin: %v", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, raceerr.NewEngineError("could not open engine stdout: %v", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, raceerr.NewEngineError("could not start engine subprocess: %v", err)
	}
	return &MaudeEngine{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}, nil
}

// Submit sends batch as one JSON line per input followed by a blank line,
// then reads output lines until a blank line closes the layer. shards is
// not sent to the driver subprocess: the wire protocol carries only id,
// prevKind and expr, and the Go side treats the whole exchange as one
// opaque round-trip per spec §4.5.
func (e *MaudeEngine) Submit(ctx context.Context, batch []Input, shards int) ([]Output, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, in := range batch {
		line, err := json.Marshal(wireInput{ID: in.ID, PrevKind: in.PrevKind, Expr: in.Expression})
		if err != nil {
			return nil, raceerr.NewEngineError("could not encode input %d: %v", in.ID, err)
		}
		if _, err := e.stdin.Write(append(line, '\n')); err != nil {
			return nil, raceerr.NewEngineError("could not write input %d: %v", in.ID, err)
		}
	}
	if _, err := e.stdin.Write([]byte("\n")); err != nil {
		return nil, raceerr.NewEngineError("could not terminate layer: %v", err)
	}

	var outputs []Output
	for {
		select {
		case <-ctx.Done():
			return nil, raceerr.NewEngineError("engine submission cancelled: %v", ctx.Err())
		default:
		}

		line, err := e.stdout.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, raceerr.NewEngineError("could not read engine output: %v", err)
		}
		trimmed := trimNewline(line)
		if trimmed == "" {
			break
		}

		var w wireOutput
		if err := json.Unmarshal([]byte(trimmed), &w); err != nil {
			return nil, raceerr.NewEngineError("unparseable engine output %q: %v", trimmed, err)
		}
		if w.Error != "" {
			return nil, raceerr.NewEngineError("engine reported failure for input %d: %s", w.ID, w.Error)
		}
		outputs = append(outputs, Output{
			ID:                  w.ID,
			SuccessorKind:       w.SuccessorKind,
			Label:               w.Label,
			SuccessorExpression: w.Expr,
		})
		if err == io.EOF {
			break
		}
	}
	return outputs, nil
}

// Close terminates the driver subprocess.
func (e *MaudeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.stdin.Close()
	return e.cmd.Wait()
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

