// Package catalog is the static lookup from the restricted accounting
// vocabulary (entity names) to their queryable fields. Loaded once from
// embedded resources; read-only at runtime.
package catalog

import (
	_ "embed"
	"encoding/json"
	"strings"
	"sync"
)

//go:embed allowed_models.txt
var allowedModelsRaw string

//go:embed accounting_schema.json
var accountingSchemaRaw []byte

var (
	loadOnce      sync.Once
	allowedModels map[string]bool
	entityOrder   []string
	fieldsByKey   map[string][]string
)

// relations maps relational field names to the entity whose display name
// resolves them. Fields ending in _id without an entry pass through as
// plain scalars.
var relations = map[string]string{
	"partner_id":  "res.partner",
	"currency_id": "res.currency",
	"journal_id":  "account.journal",
	"move_id":     "account.move",
}

func load() {
	loadOnce.Do(func() {
		allowedModels = make(map[string]bool)
		for _, name := range strings.Fields(allowedModelsRaw) {
			allowedModels[name] = true
			entityOrder = append(entityOrder, name)
		}
		if err := json.Unmarshal(accountingSchemaRaw, &fieldsByKey); err != nil {
			// The schema is embedded at build time; a parse failure is a
			// packaging bug, not a runtime condition.
			panic("catalog: invalid embedded accounting schema: " + err.Error())
		}
	})
}

// Entities returns every allow-listed entity name, in file order.
func Entities() []string {
	load()
	return entityOrder
}

// IsAllowed reports whether an entity is in the allow-list.
func IsAllowed(entity string) bool {
	load()
	return allowedModels[entity]
}

// Fields returns the queryable field names of an entity, or an empty list
// when the entity has no field mapping.
func Fields(entity string) []string {
	load()
	key := strings.ReplaceAll(entity, ".", "_")
	return fieldsByKey[key]
}

// HasField reports whether the entity's catalog entry contains the field.
func HasField(entity, field string) bool {
	for _, f := range Fields(entity) {
		if f == field {
			return true
		}
	}
	return false
}

// RelationTarget returns the entity a relational field points at, if the
// catalog knows how to resolve its display name.
func RelationTarget(field string) (string, bool) {
	target, ok := relations[field]
	return target, ok
}

// TableName converts a dotted entity name to its storage table name.
func TableName(entity string) string {
	return strings.ReplaceAll(entity, ".", "_")
}
