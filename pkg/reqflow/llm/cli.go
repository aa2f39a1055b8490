package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLI implements Client by shelling out to a completion CLI binary
// (e.g. the claude CLI). The binary is expected to print the completion
// text to stdout and diagnostics to stderr.
type CLI struct {
	path    string
	model   string
	workdir string
	timeout time.Duration
}

// CLIOption configures CLI.
type CLIOption func(*CLI)

// NewCLI creates a new CLI-backed client.
// Assumes "claude" is available in PATH unless overridden with WithPath.
func NewCLI(opts ...CLIOption) *CLI {
	c := &CLI{
		path:    "claude",
		timeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithPath sets the path to the CLI binary.
func WithPath(path string) CLIOption {
	return func(c *CLI) { c.path = path }
}

// WithModel sets the default model.
func WithModel(model string) CLIOption {
	return func(c *CLI) { c.model = model }
}

// WithWorkdir sets the working directory for CLI invocations.
func WithWorkdir(dir string) CLIOption {
	return func(c *CLI) { c.workdir = dir }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) CLIOption {
	return func(c *CLI) { c.timeout = d }
}

// Generate implements Client.
func (c *CLI) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.path, c.buildArgs(req)...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Check for context cancellation first
		if ctx.Err() != nil {
			return nil, NewError("generate", ctx.Err(), false)
		}

		errMsg := stderr.String()
		return nil, NewError("generate", fmt.Errorf("%w: %s", err, errMsg), isRetryableError(errMsg))
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	return &Response{
		Text:     strings.TrimSpace(stdout.String()),
		Model:    model,
		Duration: time.Since(start),
	}, nil
}

// buildArgs constructs CLI arguments from a request.
func (c *CLI) buildArgs(req Request) []string {
	args := []string{"--print"}

	if req.SystemPrompt != "" {
		args = append(args, "--system-prompt", req.SystemPrompt)
	}

	// Model priority: request > client default
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		args = append(args, "-p", prompt)
	}
	return args
}

// isRetryableError checks if an error message indicates a transient error.
func isRetryableError(errMsg string) bool {
	errLower := strings.ToLower(errMsg)
	return strings.Contains(errLower, "rate limit") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "overloaded") ||
		strings.Contains(errLower, "503") ||
		strings.Contains(errLower, "529")
}
