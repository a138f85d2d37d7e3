package plot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	attributes := []string{"partner_id", "amount_total", "invoice_date"}

	t.Run("valid spec", func(t *testing.T) {
		spec, err := ParseSpec(`{"type": "bar", "title": "Revenue by customer", "x": "partner_id", "y": "amount_total"}`, attributes)
		require.NoError(t, err)
		assert.Equal(t, TypeBar, spec.Type)
		assert.Equal(t, "partner_id", spec.X)
	})

	t.Run("fenced spec", func(t *testing.T) {
		spec, err := ParseSpec("```json\n{\"type\": \"PIE\", \"title\": \"t\", \"x\": \"partner_id\", \"y\": \"amount_total\"}\n```", attributes)
		require.NoError(t, err)
		assert.Equal(t, TypePie, spec.Type)
	})

	t.Run("unknown chart type", func(t *testing.T) {
		_, err := ParseSpec(`{"type": "scatter", "x": "partner_id", "y": "amount_total"}`, attributes)
		assert.Error(t, err)
	})

	t.Run("attribute outside result set", func(t *testing.T) {
		_, err := ParseSpec(`{"type": "bar", "x": "partner_id", "y": "secret_column"}`, attributes)
		assert.Error(t, err)
	})

	t.Run("script smuggled into output", func(t *testing.T) {
		_, err := ParseSpec(`import os; os.system("id")`, attributes)
		assert.Error(t, err)
	})

	t.Run("dunder probing rejected", func(t *testing.T) {
		_, err := ParseSpec(`{"type": "bar", "title": "__class__.__mro__", "x": "partner_id", "y": "amount_total"}`, attributes)
		assert.Error(t, err)
	})
}

func TestRender(t *testing.T) {
	records := []map[string]any{
		{"partner_id": map[string]any{"id": int64(1), "display_name": "Azure Interior"}, "amount_total": 1013.15},
		{"partner_id": map[string]any{"id": int64(2), "display_name": "Deco Addict"}, "amount_total": 736.0},
		{"partner_id": map[string]any{"id": int64(3), "display_name": "Gemini Furniture"}, "amount_total": 158.36},
	}

	pngHeader := []byte{0x89, 'P', 'N', 'G'}

	for _, chartType := range []string{TypeBar, TypeLine, TypePie} {
		t.Run(chartType, func(t *testing.T) {
			spec := &Spec{Type: chartType, Title: "Revenue by customer", X: "partner_id", Y: "amount_total"}
			image, err := Render(spec, records)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(image, pngHeader), "render output is not a PNG")
		})
	}

	t.Run("no records", func(t *testing.T) {
		spec := &Spec{Type: TypeBar, X: "partner_id", Y: "amount_total"}
		_, err := Render(spec, nil)
		assert.Error(t, err)
	})

	t.Run("non numeric y attribute", func(t *testing.T) {
		spec := &Spec{Type: TypeBar, X: "partner_id", Y: "partner_id"}
		_, err := Render(spec, records)
		assert.Error(t, err)
	})
}
