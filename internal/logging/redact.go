package logging

import "regexp"

const redactedValue = "<redacted>"

var (
	secretAssignment = regexp.MustCompile(`(?i)\b([A-Z0-9_.-]*(?:token|secret|password|passwd|api[_-]?key|credential)[A-Z0-9_.-]*)(["']?\s*[:=]\s*["']?)([^\s"',}]+)`)
	bearerToken      = regexp.MustCompile(`(?i)\b(bearer)\s+[A-Za-z0-9._~+/=-]+`)
	urlCredentials   = regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.-]*://[^:/\s@]+):[^@\s/]+@`)
)

// Redact masks secret-looking values before text leaves the process through
// notification payloads.
func Redact(text string) string {
	if text == "" {
		return text
	}
	text = secretAssignment.ReplaceAllString(text, "${1}${2}"+redactedValue)
	text = bearerToken.ReplaceAllString(text, "${1} "+redactedValue)
	text = urlCredentials.ReplaceAllString(text, "${1}:"+redactedValue+"@")
	return text
}
