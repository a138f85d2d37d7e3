// Package nlquery turns natural language questions into validated,
// read-only queries over the accounting entities, and executes them.
package nlquery

import (
	"regexp"
	"strings"
)

// Flags carries the outcome of the safety and format gates. Every gate
// runs; a query can trip more than one flag at once.
type Flags struct {
	NotRestricted bool
	NotSafe       bool
	NotFormatted  bool
}

// Ok reports whether no gate tripped.
func (f Flags) Ok() bool {
	return !f.NotRestricted && !f.NotSafe && !f.NotFormatted
}

// forbiddenVerbs are matched on word boundaries so that field names like
// created_at or write_date pass while the bare verb is still caught.
var forbiddenVerbs = []string{
	"write", "unlink", "create", "delete", "remove",
	"execute", "sudo", "commit", "rollback", "eval", "exec",
}

// forbiddenMarkers are matched as plain substrings. These are fragments
// of hostile payloads rather than words.
var forbiddenMarkers = []string{
	"env[", ".env", "cr.execute", "__import__",
}

var verbPatterns = compileVerbPatterns(forbiddenVerbs)

// sqlWriteVerbs are statements a read-only query must never contain.
var sqlWriteVerbs = []string{
	"insert", "update", "delete", "drop", "create", "alter",
	"truncate", "grant", "revoke", "replace", "commit", "rollback",
}

var sqlVerbPatterns = compileVerbPatterns(sqlWriteVerbs)

// sqlCommentMarkers hide payloads from the verb scan and have no place
// in a generated query.
var sqlCommentMarkers = []string{"--", "/*"}

var langTagRegexp = regexp.MustCompile(`^[a-z0-9]*$`)

func compileVerbPatterns(verbs []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(verbs))
	for _, verb := range verbs {
		patterns = append(patterns, regexp.MustCompile(`\b`+verb+`\b`))
	}
	return patterns
}

// CheckDomain runs the safety and format gates over a rendered domain
// filter. Both gates always run so the caller sees every violation.
func CheckDomain(domain string) Flags {
	var flags Flags
	lowered := strings.ToLower(domain)

	for _, pattern := range verbPatterns {
		if pattern.MatchString(lowered) {
			flags.NotSafe = true
			break
		}
	}
	if !flags.NotSafe {
		for _, marker := range forbiddenMarkers {
			if strings.Contains(lowered, marker) {
				flags.NotSafe = true
				break
			}
		}
	}

	trimmed := strings.TrimSpace(lowered)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		flags.NotFormatted = true
	}
	return flags
}

// CheckSQL runs the read-only gates over a generated SQL statement.
// Both gates always run so the caller sees every violation.
func CheckSQL(query string) Flags {
	var flags Flags
	sql := strings.ToLower(strings.TrimSpace(query))
	// A trailing semicolon is tolerated; any other separator is hostile.
	body := strings.TrimSuffix(sql, ";")

	flags.NotSafe = containsForbiddenSQLToken(body) || strings.Contains(body, ";")

	// A single statement starting with the read verb.
	if !strings.HasPrefix(sql, "select") || strings.Contains(body, ";") {
		flags.NotFormatted = true
	}
	return flags
}

func containsForbiddenSQLToken(sql string) bool {
	for _, pattern := range sqlVerbPatterns {
		if pattern.MatchString(sql) {
			return true
		}
	}
	for _, marker := range forbiddenMarkers {
		if strings.Contains(sql, marker) {
			return true
		}
	}
	for _, marker := range sqlCommentMarkers {
		if strings.Contains(sql, marker) {
			return true
		}
	}
	return false
}

// StripCodeFence removes a surrounding markdown code fence, with or
// without a language tag, from model output.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop a language tag (```sql, ```json, ...) on the opening fence.
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(trimmed[:idx])
		if langTagRegexp.MatchString(firstLine) {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
