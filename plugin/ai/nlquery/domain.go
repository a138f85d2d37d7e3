package nlquery

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"github.com/chartlyhq/chartly/store"
)

// Domain filters arrive as a bracketed list of (field, operator, value)
// triples, for example:
//
//	[('customer_rank', '>', 0), ('date', '>=', now - duration('480h'))]
//
// Field and operator are quoted literals. Values are either literals
// (strings, numbers, booleans, lists) or expressions over the small CEL
// environment below, which only exposes the current time.

var celEnv = mustNewDomainEnv()

func mustNewDomainEnv() *cel.Env {
	env, err := cel.NewEnv(cel.Variable("now", cel.TimestampType))
	if err != nil {
		panic("nlquery: failed to build domain expression env: " + err.Error())
	}
	return env
}

// ParseDomain parses a rendered domain filter into validated conditions.
// The input must already have passed CheckDomain.
func ParseDomain(domain string) ([]store.RecordCondition, error) {
	trimmed := strings.TrimSpace(domain)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, errors.Errorf("domain is not a bracketed list: %s", domain)
	}
	body := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if body == "" {
		return []store.RecordCondition{}, nil
	}

	parts, err := splitTopLevel(body)
	if err != nil {
		return nil, err
	}

	conditions := make([]store.RecordCondition, 0, len(parts))
	for _, part := range parts {
		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		if err := store.ValidateCondition(cond); err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}
	return conditions, nil
}

// parseCondition parses one "('field', 'op', value)" triple.
func parseCondition(part string) (store.RecordCondition, error) {
	var cond store.RecordCondition
	trimmed := strings.TrimSpace(part)
	if !strings.HasPrefix(trimmed, "(") || !strings.HasSuffix(trimmed, ")") {
		return cond, errors.Errorf("condition is not a tuple: %s", part)
	}
	inner := trimmed[1 : len(trimmed)-1]

	elements, err := splitTopLevel(inner)
	if err != nil {
		return cond, err
	}
	if len(elements) != 3 {
		return cond, errors.Errorf("condition must have exactly three elements: %s", part)
	}

	field, err := parseQuoted(elements[0])
	if err != nil {
		return cond, errors.Wrap(err, "invalid condition field")
	}
	operator, err := parseQuoted(elements[1])
	if err != nil {
		return cond, errors.Wrap(err, "invalid condition operator")
	}
	value, err := parseValue(elements[2])
	if err != nil {
		return cond, errors.Wrapf(err, "invalid condition value for field %q", field)
	}

	cond.Field = field
	cond.Operator = strings.ToLower(strings.TrimSpace(operator))
	cond.Value = value
	return cond, nil
}

// parseValue parses a literal, or falls back to evaluating the element as
// a CEL expression over `now` for relative dates.
func parseValue(element string) (any, error) {
	trimmed := strings.TrimSpace(element)
	switch {
	case trimmed == "":
		return nil, errors.New("empty value")
	case trimmed == "None" || trimmed == "null":
		return nil, nil
	case trimmed == "True" || trimmed == "true":
		return true, nil
	case trimmed == "False" || trimmed == "false":
		return false, nil
	}

	if isQuoted(trimmed) {
		return parseQuoted(trimmed)
	}

	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") ||
		strings.HasPrefix(trimmed, "(") && strings.HasSuffix(trimmed, ")") {
		inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
		inner = strings.TrimSuffix(inner, ",")
		if inner == "" {
			return []any{}, nil
		}
		parts, err := splitTopLevel(inner)
		if err != nil {
			return nil, err
		}
		values := make([]any, 0, len(parts))
		for _, part := range parts {
			value, err := parseValue(part)
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		return values, nil
	}

	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f, nil
	}

	return evalExpression(trimmed)
}

// evalExpression evaluates a relative date expression such as
// `now - duration('720h')` and renders the result as a query value.
func evalExpression(expr string) (any, error) {
	// CEL uses double quotes for strings.
	normalized := strings.ReplaceAll(expr, "'", `"`)

	ast, issues := celEnv.Compile(normalized)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "failed to compile expression %q", expr)
	}
	prg, err := celEnv.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build expression %q", expr)
	}
	out, _, err := prg.Eval(map[string]any{"now": time.Now().UTC()})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to evaluate expression %q", expr)
	}

	switch v := out.Value().(type) {
	case time.Time:
		return v.Format("2006-01-02 15:04:05"), nil
	case string, bool, int64, uint64, float64:
		return v, nil
	default:
		return nil, errors.Errorf("expression %q yields unsupported value type %T", expr, v)
	}
}

// MakeHashable normalizes parsed conditions so repeated parses of the same
// domain compare equal. List values become fixed-size slices of plain
// values; applying it twice is a no-op.
func MakeHashable(conditions []store.RecordCondition) []store.RecordCondition {
	normalized := make([]store.RecordCondition, len(conditions))
	for i, cond := range conditions {
		if values, ok := cond.Value.([]any); ok {
			list := make([]any, len(values))
			copy(list, values)
			cond.Value = list
		}
		normalized[i] = cond
	}
	return normalized
}

// splitTopLevel splits on commas that are not nested inside parentheses,
// brackets, or quoted strings.
func splitTopLevel(s string) ([]string, error) {
	var parts []string
	var depth int
	var quote byte
	start := 0

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth < 0 {
				return nil, errors.Errorf("unbalanced brackets in %q", s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if quote != 0 {
		return nil, errors.Errorf("unterminated string in %q", s)
	}
	if depth != 0 {
		return nil, errors.Errorf("unbalanced brackets in %q", s)
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		parts = append(parts, last)
	}
	return parts, nil
}

func isQuoted(s string) bool {
	return len(s) >= 2 &&
		(s[0] == '\'' && s[len(s)-1] == '\'' || s[0] == '"' && s[len(s)-1] == '"')
}

func parseQuoted(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if !isQuoted(trimmed) {
		return "", errors.Errorf("expected a quoted string, got %q", s)
	}
	return trimmed[1 : len(trimmed)-1], nil
}
