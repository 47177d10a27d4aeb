package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/elsieclark/superqueue/pkg/superqueue"
)

// maxOutput bounds the combined output kept per run; the tail is kept.
const maxOutput = 64 << 10

// Output is the result value of a command task.
type Output struct {
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output,omitempty"`
}

// Command returns a task running argv in dir. A non-zero exit is an error
// carrying the last output line; ctx cancellation kills the process.
func Command(argv []string, dir string) superqueue.Task {
	argv = append([]string(nil), argv...)
	return func(ctx context.Context) (any, error) {
		if len(argv) == 0 {
			return nil, errors.New("empty command")
		}
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Dir = dir
		var buf tailBuffer
		cmd.Stdout = &buf
		cmd.Stderr = &buf

		err := cmd.Run()
		out := Output{Output: buf.String()}
		if cmd.ProcessState != nil {
			out.ExitCode = cmd.ProcessState.ExitCode()
		}
		if err != nil {
			if ctx.Err() != nil {
				return out, fmt.Errorf("%s: %w", argv[0], ctx.Err())
			}
			if last := lastLine(out.Output); last != "" {
				return out, fmt.Errorf("%s: %w: %s", argv[0], err, last)
			}
			return out, fmt.Errorf("%s: %w", argv[0], err)
		}
		return out, nil
	}
}

type tailBuffer struct {
	b bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) > maxOutput {
		p = p[len(p)-maxOutput:]
	}
	if over := t.b.Len() + len(p) - maxOutput; over > 0 {
		t.b.Next(over)
	}
	t.b.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string { return t.b.String() }

func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n\t ")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	const maxLine = 200
	if len(s) > maxLine {
		s = s[:maxLine] + "…"
	}
	return strings.TrimSpace(s)
}
