package railcli

import "regexp"

// Sanitization rules applied to every captured output line, in order. The
// patterns are deliberately narrow: a URL without embedded credentials, such
// as a generated deployment URL, must pass through unchanged.
var sanitizeRules = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`RAILWAY_TOKEN=\S+`), "RAILWAY_TOKEN=***"},
	{regexp.MustCompile(`Bearer\s+[A-Za-z0-9._~+/-]+=*`), "Bearer ***"},
	{regexp.MustCompile(`postgres(?:ql)?://[^\s@/]+@\S+`), "postgresql://***:***@***"},
	{regexp.MustCompile(`redis://[^\s@/]+@\S+`), "redis://***:***@***"},
	{regexp.MustCompile(`(variable set\s+[A-Za-z_][A-Za-z0-9_]*)=\S+`), "${1}=***"},
}

// SanitizeLine strips credential and secret patterns from a single line of
// CLI output before it reaches any buffer, callback, log, or audit trail.
func SanitizeLine(line string) string {
	for _, rule := range sanitizeRules {
		line = rule.pattern.ReplaceAllString(line, rule.replacement)
	}
	return line
}
