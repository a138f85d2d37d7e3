package nlquery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartlyhq/chartly/store"
)

func TestParseDomain(t *testing.T) {
	t.Run("simple conditions", func(t *testing.T) {
		conditions, err := ParseDomain("[('customer_rank', '>', 0), ('name', 'ilike', '%azure%')]")
		require.NoError(t, err)
		require.Len(t, conditions, 2)
		assert.Equal(t, store.RecordCondition{Field: "customer_rank", Operator: ">", Value: int64(0)}, conditions[0])
		assert.Equal(t, store.RecordCondition{Field: "name", Operator: "ilike", Value: "%azure%"}, conditions[1])
	})

	t.Run("empty domain", func(t *testing.T) {
		conditions, err := ParseDomain("[]")
		require.NoError(t, err)
		assert.Empty(t, conditions)
	})

	t.Run("list values", func(t *testing.T) {
		conditions, err := ParseDomain("[('state', 'in', ['posted', 'draft'])]")
		require.NoError(t, err)
		require.Len(t, conditions, 1)
		assert.Equal(t, []any{"posted", "draft"}, conditions[0].Value)
	})

	t.Run("python tuple values", func(t *testing.T) {
		conditions, err := ParseDomain("[('payment_state', 'not in', ('paid', 'reversed'))]")
		require.NoError(t, err)
		require.Len(t, conditions, 1)
		assert.Equal(t, []any{"paid", "reversed"}, conditions[0].Value)
	})

	t.Run("relative date expression", func(t *testing.T) {
		conditions, err := ParseDomain("[('date', '>=', now - duration('480h'))]")
		require.NoError(t, err)
		require.Len(t, conditions, 1)

		rendered, ok := conditions[0].Value.(string)
		require.True(t, ok)
		parsed, err := time.Parse("2006-01-02 15:04:05", rendered)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC().Add(-480*time.Hour), parsed, time.Minute)
	})

	t.Run("booleans and null", func(t *testing.T) {
		conditions, err := ParseDomain("[('active', '=', True), ('email', '!=', None)]")
		require.NoError(t, err)
		require.Len(t, conditions, 2)
		assert.Equal(t, true, conditions[0].Value)
		assert.Nil(t, conditions[1].Value)
	})

	t.Run("rejects hostile expressions", func(t *testing.T) {
		_, err := ParseDomain("[('name', '=', __import__('os').system('rm -rf /'))]")
		assert.Error(t, err)
	})

	t.Run("rejects unknown operator", func(t *testing.T) {
		_, err := ParseDomain("[('name', 'child_of', 1)]")
		assert.Error(t, err)
	})

	t.Run("rejects unbalanced input", func(t *testing.T) {
		_, err := ParseDomain("[('name', '=', 'x'")
		assert.Error(t, err)
	})

	t.Run("rejects non-tuple element", func(t *testing.T) {
		_, err := ParseDomain("['not a tuple']")
		assert.Error(t, err)
	})
}

func TestMakeHashable(t *testing.T) {
	conditions := []store.RecordCondition{
		{Field: "state", Operator: "in", Value: []any{"posted", "draft"}},
		{Field: "customer_rank", Operator: ">", Value: int64(0)},
	}

	once := MakeHashable(conditions)
	twice := MakeHashable(once)
	assert.Equal(t, once, twice)

	// Normalization copies list values instead of aliasing them.
	once[0].Value.([]any)[0] = "changed"
	assert.Equal(t, "posted", conditions[0].Value.([]any)[0])
}
