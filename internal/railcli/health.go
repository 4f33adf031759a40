package railcli

import (
	"context"
	"regexp"
	"strings"
)

// HealthStatus reports connectivity to the platform as seen by the CLI.
type HealthStatus struct {
	Connected bool   `json:"connected"`
	Username  string `json:"username,omitempty"`
	Error     string `json:"error,omitempty"`
}

var loggedInRe = regexp.MustCompile(`Logged in as (.+?)(?:\s+\(|$)`)

// CheckHealth runs `whoami` and reports whether the credential is usable.
// It never returns a Go error; failures are reported in the status.
func CheckHealth(ctx context.Context, runner Runner, token string) HealthStatus {
	res, err := runner.Execute(ctx, Request{Command: "whoami", Token: token})
	if err != nil {
		return HealthStatus{Connected: false, Error: err.Error()}
	}
	if res.TimedOut {
		return HealthStatus{Connected: false, Error: "whoami timed out"}
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = "whoami failed"
		}
		return HealthStatus{Connected: false, Error: msg}
	}

	for _, line := range strings.Split(res.Stdout, "\n") {
		if m := loggedInRe.FindStringSubmatch(line); m != nil {
			return HealthStatus{Connected: true, Username: strings.TrimSpace(m[1])}
		}
	}
	// Older CLI versions print the bare account name.
	if name := strings.TrimSpace(res.Stdout); name != "" {
		return HealthStatus{Connected: true, Username: name}
	}
	return HealthStatus{Connected: true}
}
