package railcli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Timeout budgets. Deploy-class commands (up, redeploy) run builds and get
// the larger budget. On expiry the process receives SIGTERM, then SIGKILL
// after the grace window.
const (
	DeployTimeout   = 600 * time.Second
	StandardTimeout = 120 * time.Second
	KillGrace       = 5 * time.Second
)

// TokenEnvVar is the single credential variable handed to spawned processes.
const TokenEnvVar = "RAILWAY_TOKEN"

// injectionChars are rejected anywhere in a command string, including the
// backtick. Commands are never routed through a shell, but rejecting these
// outright keeps a config or template mistake from ever becoming one.
const injectionChars = ";&|`$(){}"

var allowedVerbs = map[string]bool{
	"whoami": true, "status": true, "list": true, "init": true,
	"link": true, "up": true, "add": true, "redeploy": true,
	"restart": true, "down": true, "domain": true, "logs": true,
	"variable": true, "environment": true, "service": true, "connect": true,
}

// deniedVerbs are rejected before the allow-list is consulted. These either
// mutate credentials, open interactive sessions, or destroy resources.
var deniedVerbs = map[string]bool{
	"login": true, "logout": true, "open": true, "delete": true,
	"ssh": true, "shell": true, "run": true,
}

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "railcli_commands_total",
		Help: "Total CLI commands by verb and outcome",
	}, []string{"verb", "outcome"})

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "railcli_command_duration_seconds",
		Help:    "CLI command wall-clock duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"verb"})
)

// Request describes one sandboxed CLI invocation.
type Request struct {
	// Command is the verb, optionally followed by a subcommand,
	// e.g. "up" or "variable set".
	Command string
	// Token is the decrypted platform credential for this invocation.
	Token       string
	WorkingDir  string
	Args        []string
	Service     string
	Environment string
	Flags       []string
	// Timeout overrides the class default when positive.
	Timeout time.Duration
	// OnOutput receives each complete sanitized line, tagged with its
	// stream ("stdout" or "stderr"). Partial lines are never delivered.
	OnOutput func(stream, line string)
}

// Result is the outcome of one invocation. Post-spawn failures, including
// spawn errors themselves, are encoded here rather than returned as errors.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// Runner executes sandboxed CLI commands.
type Runner interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// Executor validates, sandboxes, spawns, and timeout-guards Railway CLI
// invocations.
type Executor struct {
	logger      zerolog.Logger
	binary      string
	sandboxHome string
	sandboxPath string
	killGrace   time.Duration
}

func NewExecutor(logger zerolog.Logger, binary, sandboxHome, sandboxPath string) *Executor {
	return &Executor{
		logger:      logger.With().Str("component", "railcli").Logger(),
		binary:      binary,
		sandboxHome: sandboxHome,
		sandboxPath: sandboxPath,
		killGrace:   KillGrace,
	}
}

// Execute runs one CLI command. It returns a *ForbiddenOperationError when
// the request fails pre-spawn validation; once a spawn has been attempted it
// always returns a Result and a nil error.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	fields := strings.Fields(req.Command)
	if len(fields) == 0 {
		commandsTotal.WithLabelValues("", "rejected").Inc()
		return nil, &ForbiddenOperationError{Command: req.Command, Reason: "empty command"}
	}
	verb := fields[0]
	if strings.ContainsAny(req.Command, injectionChars) {
		commandsTotal.WithLabelValues(verb, "rejected").Inc()
		return nil, &ForbiddenOperationError{Command: req.Command, Reason: "shell metacharacters are not allowed"}
	}
	if deniedVerbs[verb] {
		commandsTotal.WithLabelValues(verb, "rejected").Inc()
		return nil, &ForbiddenOperationError{Command: req.Command, Reason: "explicitly denied"}
	}
	if !allowedVerbs[verb] {
		commandsTotal.WithLabelValues(verb, "rejected").Inc()
		return nil, &ForbiddenOperationError{Command: req.Command, Reason: "not in the allowed command set"}
	}

	// Explicit argument vector, never a shell.
	argv := make([]string, 0, len(fields)+len(req.Args)+len(req.Flags)+4)
	argv = append(argv, fields...)
	argv = append(argv, req.Args...)
	if req.Service != "" {
		argv = append(argv, "-s", req.Service)
	}
	if req.Environment != "" {
		argv = append(argv, "-e", req.Environment)
	}
	argv = append(argv, req.Flags...)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout(verb)
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(tctx, e.binary, argv...)
	cmd.Dir = req.WorkingDir
	cmd.Env = e.sandboxEnv(req.Token)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = e.killGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &Result{ExitCode: -1, Stderr: SanitizeLine(err.Error())}, nil
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &Result{ExitCode: -1, Stderr: SanitizeLine(err.Error())}, nil
	}

	e.logger.Debug().Str("verb", verb).Strs("argv", argv).Msg("executing CLI command")

	start := time.Now()
	if err := cmd.Start(); err != nil {
		commandsTotal.WithLabelValues(verb, "spawn_error").Inc()
		return &Result{
			ExitCode: -1,
			Stderr:   SanitizeLine(err.Error()),
			Duration: time.Since(start),
		}, nil
	}

	var stdoutBuf, stderrBuf strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go drain(stdout, "stdout", &stdoutBuf, req.OnOutput, &wg)
	go drain(stderr, "stderr", &stderrBuf, req.OnOutput, &wg)
	wg.Wait()

	waitErr := cmd.Wait()
	duration := time.Since(start)
	timedOut := errors.Is(tctx.Err(), context.DeadlineExceeded)

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
			// Signal terminations report -1; synthesize the conventional
			// 128+signal code instead.
			if exitCode < 0 {
				if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
					exitCode = 128 + int(ws.Signal())
				}
			}
		} else {
			exitCode = -1
			if stderrBuf.Len() == 0 {
				stderrBuf.WriteString(SanitizeLine(waitErr.Error()))
			}
		}
	}

	outcome := "success"
	switch {
	case timedOut:
		outcome = "timeout"
	case exitCode != 0:
		outcome = "failed"
	}
	commandsTotal.WithLabelValues(verb, outcome).Inc()
	commandDuration.WithLabelValues(verb).Observe(duration.Seconds())

	e.logger.Debug().
		Str("verb", verb).
		Int("exit_code", exitCode).
		Dur("duration", duration).
		Bool("timed_out", timedOut).
		Msg("CLI command finished")

	return &Result{
		ExitCode: exitCode,
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: duration,
		TimedOut: timedOut,
	}, nil
}

// sandboxEnv builds the child environment: exactly four variables, nothing
// inherited from the host. Host secrets such as DATABASE_URL must never reach
// the child process.
func (e *Executor) sandboxEnv(token string) []string {
	return []string{
		TokenEnvVar + "=" + token,
		"HOME=" + e.sandboxHome,
		"PATH=" + e.sandboxPath,
		"CI=true",
	}
}

func defaultTimeout(verb string) time.Duration {
	if verb == "up" || verb == "redeploy" {
		return DeployTimeout
	}
	return StandardTimeout
}

func drain(r io.Reader, stream string, buf *strings.Builder, cb func(stream, line string), wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	emit := func(line string) {
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
		if cb != nil {
			cb(stream, line)
		}
	}
	for scanner.Scan() {
		emit(SanitizeLine(scanner.Text()))
	}
	// A line over the buffer limit aborts scanning; record the cut instead
	// of dropping the rest of the stream silently.
	if err := scanner.Err(); err != nil {
		emit(fmt.Sprintf("[%s truncated: %v]", stream, err))
	}
}
