package deploy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/edvin/raildeploy/internal/model"
	"github.com/edvin/raildeploy/internal/railcli"
)

// VariableInfo describes a service environment variable without its value.
// Values never appear in returned structures, logs, or audit payloads.
type VariableInfo struct {
	Name   string `json:"name"`
	Masked bool   `json:"masked"`
}

// ListVariables returns the names of the service's environment variables.
func (d *SingleServiceDeployer) ListVariables(ctx context.Context, svc *model.Service, opts Options) ([]VariableInfo, error) {
	res, err := d.runner.Execute(ctx, railcli.Request{
		Command:     "variable list",
		Token:       opts.Token,
		Service:     d.selector(svc),
		Environment: opts.Environment,
	})
	if err != nil {
		return nil, err
	}
	if res.TimedOut || res.ExitCode != 0 {
		return nil, &UpstreamError{Op: "variable list", Detail: commandFailureDetail(res, "variable list")}
	}

	var vars []VariableInfo
	for _, line := range strings.Split(res.Stdout, "\n") {
		name := variableName(line)
		if name == "" {
			continue
		}
		vars = append(vars, VariableInfo{Name: name, Masked: true})
	}

	d.auditLog(ctx, opts, "variables.listed", "service", svc.ID, map[string]any{
		"service_name": svc.Name,
		"count":        len(vars),
	})
	return vars, nil
}

// SetVariables upserts the given variables one key at a time. Audit metadata
// records names and counts only.
func (d *SingleServiceDeployer) SetVariables(ctx context.Context, svc *model.Service, vars map[string]string, opts Options) error {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res, err := d.runner.Execute(ctx, railcli.Request{
			Command:     "variable set",
			Token:       opts.Token,
			Args:        []string{name + "=" + vars[name]},
			Service:     d.selector(svc),
			Environment: opts.Environment,
		})
		if err != nil {
			return err
		}
		if res.TimedOut || res.ExitCode != 0 {
			return &UpstreamError{Op: "variable set", Detail: commandFailureDetail(res, "setting "+name)}
		}
	}

	d.auditLog(ctx, opts, "variables.set", "service", svc.ID, map[string]any{
		"service_name": svc.Name,
		"names":        names,
		"count":        len(names),
	})
	return nil
}

// DeleteVariable removes one variable by name.
func (d *SingleServiceDeployer) DeleteVariable(ctx context.Context, svc *model.Service, name string, opts Options) error {
	res, err := d.runner.Execute(ctx, railcli.Request{
		Command:     "variable delete",
		Token:       opts.Token,
		Args:        []string{name},
		Service:     d.selector(svc),
		Environment: opts.Environment,
	})
	if err != nil {
		return err
	}
	if res.TimedOut || res.ExitCode != 0 {
		return &UpstreamError{Op: "variable delete", Detail: commandFailureDetail(res, "deleting "+name)}
	}

	d.auditLog(ctx, opts, "variables.deleted", "service", svc.ID, map[string]any{
		"service_name": svc.Name,
		"names":        []string{name},
		"count":        1,
	})
	return nil
}

// variableName extracts the key from a `variable list` output line such as
// "API_KEY=***" or "API_KEY: set". Lines without a recognizable key are
// skipped.
func variableName(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	for _, sep := range []string{"=", ":"} {
		if i := strings.Index(line, sep); i > 0 {
			name := strings.TrimSpace(line[:i])
			if isVariableName(name) {
				return name
			}
			return ""
		}
	}
	if isVariableName(line) {
		return line
	}
	return ""
}

func isVariableName(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func commandFailureDetail(res *railcli.Result, op string) string {
	if res.TimedOut {
		return op + " timed out"
	}
	if detail := strings.TrimSpace(res.Stderr); detail != "" {
		return detail
	}
	return fmt.Sprintf("%s exited with code %d", op, res.ExitCode)
}
