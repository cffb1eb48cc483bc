package history

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// command is a version-control CLI invocation rooted in a repository.
type command struct {
	bin  string
	dir  string
	env  []string
	args []string
}

func newCommand(bin, dir string, args ...string) *command {
	return &command{bin: bin, dir: dir, args: args}
}

// run executes the command and returns its stdout. Non-zero exits carry stderr
// in the error.
func (c *command) run(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.bin, c.args...)
	cmd.Dir = c.dir
	if len(c.env) > 0 {
		cmd.Env = append(os.Environ(), c.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %s", c.bin, strings.Join(c.args, " "), msg)
	}
	return stdout.Bytes(), nil
}
