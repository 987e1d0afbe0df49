// Package redact scrubs sensitive material out of strings before they reach
// logs: credentials, connection strings, identifiers, file paths, emails,
// and SQL values that leak through error text.
package redact

import "regexp"

// Placeholders substituted for matched sensitive content.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

// rule pairs a pattern with its replacement. Replacements may reference
// capture groups, which lets the SQL rules keep statement structure while
// dropping the values.
type rule struct {
	re          *regexp.Regexp
	replacement string
}

// rules are applied in order; earlier rules can consume text a later rule
// would otherwise match (a bearer token is redacted as a key before the
// host pattern ever sees it, and SQL values are dropped before the email
// and identifier rules inspect them).
var rules = []rule{
	// Connection strings with embedded credentials.
	{regexp.MustCompile(`(?i)(postgres|mysql|mongodb|db|database|connection)://[^@]+@`), RedactedCredentialPlaceholder},

	// Passwords, API keys, tokens.
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), RedactedCredentialPlaceholder},
	{regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	), RedactedKeyPlaceholder},
	{regexp.MustCompile(`(AKIA|AccessKey(Id)?)([^a-zA-Z0-9])?[A-Z0-9]{8,}`), RedactedKeyPlaceholder},
	// Three-part base64url JWTs.
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "[REDACTED_JWT]"},

	// SQL statements leaked through driver errors. The statement shape
	// stays, the values go.
	{regexp.MustCompile(
		`(?i)\b(INSERT\s+INTO\s+[\w.]+\s*\([^)]*\)\s*VALUES)\s*\(.*\)`,
	), "${1} [SQL_VALUES_REDACTED]"},
	{regexp.MustCompile(`(?i)\b(UPDATE\s+[\w.]+\s+SET)\s+.*`), "${1} [SQL_VALUES_REDACTED]"},
	{regexp.MustCompile(`(?i)\b(DELETE\s+FROM\s+[\w.]+)\s+WHERE\s+.*`), "${1} [SQL_WHERE_REDACTED]"},
	{regexp.MustCompile(`(?i)\bSELECT\s.*?\sFROM\s.*`), "SELECT FROM... [SQL_VALUES_REDACTED]"},

	// UUIDs identify rows; a log line should not.
	{regexp.MustCompile(
		`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`,
	), "[REDACTED_UUID]"},

	// Filesystem paths, unix then windows.
	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`), RedactedPathPlaceholder},

	// Goroutine dumps and panic traces.
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), "[STACK_TRACE_REDACTED]"},

	// Email addresses.
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`), "[REDACTED_EMAIL]"},

	// Parser and filesystem error details that expose internals.
	{regexp.MustCompile(`(?:at )?line ?\d+`), "[REDACTED_LINE_NUMBER]"},
	{regexp.MustCompile(`(?i)syntax error|syntax problem|parse error`), "[REDACTED_SYNTAX_ERROR]"},
	{regexp.MustCompile(
		`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`,
	), "[REDACTED_HOST]"},
	{regexp.MustCompile(
		`(?i)(?:no such file|file not found|can't open|cannot open|file error)`,
	), "[REDACTED_FILE_ERROR]"},
}

// String returns input with every sensitive match replaced.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.re.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts err's message. A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
