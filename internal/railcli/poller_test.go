package railcli

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner replays canned results, repeating the last one once the
// script is exhausted.
type scriptedRunner struct {
	mu      sync.Mutex
	calls   []Request
	results []*Result
	err     error
}

func (r *scriptedRunner) Execute(_ context.Context, req Request) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req)
	if r.err != nil {
		return nil, r.err
	}
	i := len(r.calls) - 1
	if i >= len(r.results) {
		i = len(r.results) - 1
	}
	return r.results[i], nil
}

func (r *scriptedRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestPoller(runner Runner) *Poller {
	p := NewPoller(zerolog.Nop(), runner)
	p.interval = 10 * time.Millisecond
	return p
}

func TestWaitUntilReady_BecomesActive(t *testing.T) {
	runner := &scriptedRunner{results: []*Result{
		{ExitCode: 0, Stdout: `{"status":"deploying"}`},
		{ExitCode: 0, Stdout: `{"status":"active"}`},
	}}
	p := newTestPoller(runner)

	err := p.WaitUntilReady(context.Background(), "tok", "plat-svc-1", 5*time.Second)
	require.NoError(t, err)
	require.GreaterOrEqual(t, runner.callCount(), 2)

	first := runner.calls[0]
	assert.Equal(t, "status", first.Command)
	assert.Equal(t, "plat-svc-1", first.Service)
	assert.Equal(t, []string{"--json"}, first.Flags)
	assert.Equal(t, "tok", first.Token)
}

func TestWaitUntilReady_MalformedOutputIsNotReady(t *testing.T) {
	runner := &scriptedRunner{results: []*Result{
		{ExitCode: 0, Stdout: "Project: myapp\nEnvironment: production"},
		{ExitCode: 0, Stdout: `{"status":"active"}`},
	}}
	p := newTestPoller(runner)

	err := p.WaitUntilReady(context.Background(), "tok", "plat-svc-1", 5*time.Second)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, runner.callCount(), 2)
}

func TestWaitUntilReady_Timeout(t *testing.T) {
	runner := &scriptedRunner{results: []*Result{
		{ExitCode: 0, Stdout: `{"status":"deploying"}`},
	}}
	p := newTestPoller(runner)

	err := p.WaitUntilReady(context.Background(), "tok", "plat-svc-1", 100*time.Millisecond)
	require.Error(t, err)

	var timeoutErr *ReadinessTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "plat-svc-1", timeoutErr.ServiceID)
}

func TestWaitUntilReady_FailingStatusCommandKeepsPolling(t *testing.T) {
	runner := &scriptedRunner{results: []*Result{
		{ExitCode: 1, Stderr: "transient error"},
		{ExitCode: 0, Stdout: `{"status":"active"}`},
	}}
	p := newTestPoller(runner)

	err := p.WaitUntilReady(context.Background(), "tok", "plat-svc-1", 5*time.Second)
	require.NoError(t, err)
}

func TestWaitUntilReady_ForbiddenPassesThrough(t *testing.T) {
	runner := &scriptedRunner{err: &ForbiddenOperationError{Command: "status", Reason: "explicitly denied"}}
	p := newTestPoller(runner)

	err := p.WaitUntilReady(context.Background(), "tok", "plat-svc-1", 5*time.Second)
	var forbidden *ForbiddenOperationError
	require.ErrorAs(t, err, &forbidden)
}
