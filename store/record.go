package store

import (
	"fmt"
	"regexp"
)

// RecordCondition is one (field, operator, value) predicate over an
// accounting entity. Operators are restricted to the read-only set.
type RecordCondition struct {
	Field    string
	Operator string
	Value    any
}

// readOperators is the full set of operators a condition may carry.
// Anything else is rejected before a query is built.
var readOperators = map[string]bool{
	"=":      true,
	"!=":     true,
	">":      true,
	"<":      true,
	">=":     true,
	"<=":     true,
	"in":     true,
	"not in": true,
	"like":   true,
	"ilike":  true,
}

var identifierRegexp = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidIdentifier reports whether name is a plain lowercase SQL identifier.
// Table and field names that fail this check never reach a query.
func ValidIdentifier(name string) bool {
	return identifierRegexp.MatchString(name)
}

// ValidateCondition rejects conditions whose field name is not a plain
// lowercase identifier or whose operator is outside the read-only set.
func ValidateCondition(cond RecordCondition) error {
	if !identifierRegexp.MatchString(cond.Field) {
		return fmt.Errorf("invalid field name %q", cond.Field)
	}
	if !readOperators[cond.Operator] {
		return fmt.Errorf("operator %q is not allowed", cond.Operator)
	}
	return nil
}

// FindRecords describes a read over one accounting entity table.
type FindRecords struct {
	Table      string
	Conditions []RecordCondition
	Limit      int
}
