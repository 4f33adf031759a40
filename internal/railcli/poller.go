package railcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// PollInterval is the fixed delay between readiness polls.
const PollInterval = 2 * time.Second

// Poller waits for a provisioned service to report active.
type Poller struct {
	logger   zerolog.Logger
	runner   Runner
	interval time.Duration
}

func NewPoller(logger zerolog.Logger, runner Runner) *Poller {
	return &Poller{
		logger:   logger.With().Str("component", "readiness-poller").Logger(),
		runner:   runner,
		interval: PollInterval,
	}
}

// statusPayload is the machine-readable shape of `status --json`.
type statusPayload struct {
	Status string `json:"status"`
}

// WaitUntilReady polls the service status until it reports active or the
// timeout elapses, in which case it returns a *ReadinessTimeoutError.
// Unparseable status output counts as not yet ready.
func (p *Poller) WaitUntilReady(ctx context.Context, token, platformServiceID string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = StandardTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := retry.WithMaxDuration(timeout, retry.NewConstant(p.interval))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := p.runner.Execute(ctx, Request{
			Command: "status",
			Token:   token,
			Service: platformServiceID,
			Flags:   []string{"--json"},
		})
		if err != nil {
			// Pre-spawn rejection is a programming error, not a
			// transient condition.
			return err
		}
		if res.ExitCode != 0 || res.TimedOut {
			return retry.RetryableError(fmt.Errorf("status command failed with exit code %d", res.ExitCode))
		}

		var payload statusPayload
		if err := json.Unmarshal([]byte(res.Stdout), &payload); err != nil {
			p.logger.Debug().Str("service_id", platformServiceID).Msg("status output not yet parseable")
			return retry.RetryableError(fmt.Errorf("unparseable status output"))
		}
		if payload.Status != "active" {
			return retry.RetryableError(fmt.Errorf("service status is %q", payload.Status))
		}
		return nil
	})
	if err != nil {
		var forbidden *ForbiddenOperationError
		if errors.As(err, &forbidden) {
			return err
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return &ReadinessTimeoutError{ServiceID: platformServiceID, Timeout: timeout}
	}
	return nil
}
