// Package operation defines the gateway's service operations: their names,
// argument schemas and normalization rules. The definitions are static and
// shared read-only by both transports so their contracts stay identical.
package operation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Operation names, also used as MCP tool names
const (
	Autocomplete = "autocomplete_locations"
	Search       = "search_flights"
	Price        = "price_offer"
)

// Operation describes one remote action with a fixed argument contract
type Operation struct {
	Name        string
	Description string
	schema      *gojsonschema.Schema
}

var registry = map[string]*Operation{
	Autocomplete: {
		Name:        Autocomplete,
		Description: "Autocomplete cities and airports by free text",
		schema:      mustCompile(autocompleteSchemaJSON),
	},
	Search: {
		Name:        Search,
		Description: "Search flight offers between two airports",
		schema:      mustCompile(searchSchemaJSON),
	},
	Price: {
		Name:        Price,
		Description: "Price a flight offer returned by search_flights",
		schema:      mustCompile(priceSchemaJSON),
	},
}

func mustCompile(schemaJSON string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid operation schema: %v", err))
	}
	return schema
}

// Get returns the operation definition for a name, or nil if unknown
func Get(name string) *Operation {
	return registry[name]
}

// Names returns all registered operation names
func Names() []string {
	return []string{Autocomplete, Search, Price}
}

// ValidationError reports why an argument payload was rejected
type ValidationError struct {
	Operation  string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid arguments: %s", e.Operation, strings.Join(e.Violations, "; "))
}

// Normalize applies static defaults and canonical forms before validation:
// IATA and currency codes are upper-cased, unset fields with declared
// defaults are filled in. The input map is not modified.
func Normalize(name string, args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		out[k] = v
	}

	switch name {
	case Autocomplete:
		if _, ok := out["limit"]; !ok {
			out["limit"] = 5
		}
		if _, ok := out["sub_types"]; !ok {
			out["sub_types"] = []interface{}{"CITY", "AIRPORT"}
		}
	case Search:
		upperField(out, "origin")
		upperField(out, "destination")
		upperField(out, "currency")
		upperField(out, "cabin")
		if _, ok := out["adults"]; !ok {
			out["adults"] = 1
		}
		if _, ok := out["cabin"]; !ok {
			out["cabin"] = "ECONOMY"
		}
		if _, ok := out["max_results"]; !ok {
			out["max_results"] = 10
		}
	case Price:
		upperField(out, "currency")
	}

	return out
}

func upperField(args map[string]interface{}, key string) {
	if s, ok := args[key].(string); ok {
		args[key] = strings.ToUpper(s)
	}
}

// Validate checks an argument payload against the operation's schema.
// Returns a *ValidationError on violation, a plain error for unknown
// operations, nil when the payload is acceptable. No I/O is performed.
func Validate(name string, args map[string]interface{}) error {
	op := Get(name)
	if op == nil {
		return fmt.Errorf("unknown operation: %s", name)
	}

	if args == nil {
		args = map[string]interface{}{}
	}

	result, err := op.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", name, err)
	}

	if !result.Valid() {
		verr := &ValidationError{Operation: name}
		for _, desc := range result.Errors() {
			verr.Violations = append(verr.Violations, desc.String())
		}
		return verr
	}

	return nil
}
