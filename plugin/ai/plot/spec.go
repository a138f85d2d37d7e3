// Package plot turns query results into chart images. The model never
// produces code; it produces a small declarative chart spec that is
// validated and rendered host-side.
package plot

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Chart types the renderer knows how to draw.
const (
	TypeBar  = "bar"
	TypeLine = "line"
	TypePie  = "pie"
)

var allowedTypes = map[string]bool{
	TypeBar:  true,
	TypeLine: true,
	TypePie:  true,
}

// Spec is the declarative chart description the model is asked for.
// X names the attribute used for labels, Y the numeric attribute.
type Spec struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	X     string `json:"x"`
	Y     string `json:"y"`
}

// ParseSpec parses and validates model output into a chart spec.
// The attributes list bounds what X and Y may reference.
func ParseSpec(content string, attributes []string) (*Spec, error) {
	stripped := stripCodeFence(content)
	if err := checkForbiddenTokens(stripped); err != nil {
		return nil, err
	}

	var spec Spec
	if err := json.Unmarshal([]byte(stripped), &spec); err != nil {
		return nil, errors.Wrapf(err, "chart spec is not valid JSON: %s", stripped)
	}

	spec.Type = strings.ToLower(strings.TrimSpace(spec.Type))
	if !allowedTypes[spec.Type] {
		return nil, errors.Errorf("unsupported chart type %q", spec.Type)
	}
	if spec.X == "" || spec.Y == "" {
		return nil, errors.New("chart spec must name both x and y attributes")
	}

	known := make(map[string]bool, len(attributes))
	for _, attr := range attributes {
		known[attr] = true
	}
	if !known[spec.X] {
		return nil, errors.Errorf("chart x attribute %q is not in the result set", spec.X)
	}
	if !known[spec.Y] {
		return nil, errors.Errorf("chart y attribute %q is not in the result set", spec.Y)
	}
	return &spec, nil
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(trimmed[:idx])
		if !strings.ContainsAny(firstLine, " \t{[") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
