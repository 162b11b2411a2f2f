package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaRegistry holds compiled JSON schemas keyed by logical key prefix
type schemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

func newSchemaRegistry() *schemaRegistry {
	return &schemaRegistry{
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// compileSchema compiles a schema definition
func compileSchema(schemaDefinition []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaDefinition)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

// register compiles and stores a schema for keyPrefix, replacing any
// previous one
func (r *schemaRegistry) register(keyPrefix string, schemaDefinition []byte) error {
	schema, err := compileSchema(schemaDefinition)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.schemas[keyPrefix] = schema
	r.mu.Unlock()
	return nil
}

// lookup returns the schema with the longest prefix matching key
func (r *schemaRegistry) lookup(key string) (string, *jsonschema.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		bestPrefix string
		best       *jsonschema.Schema
	)
	for prefix, schema := range r.schemas {
		if strings.HasPrefix(key, prefix) && (best == nil || len(prefix) > len(bestPrefix)) {
			bestPrefix, best = prefix, schema
		}
	}
	return bestPrefix, best, best != nil
}

// validate checks an encoded JSON payload against the schema for key
func (r *schemaRegistry) validate(key string, payload json.RawMessage) error {
	prefix, schema, ok := r.lookup(key)
	if !ok {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var decoded interface{}
	if err := dec.Decode(&decoded); err != nil {
		return SchemaValidationError{Key: key, SchemaPrefix: prefix, Err: err}
	}
	if err := schema.Validate(decoded); err != nil {
		return SchemaValidationError{Key: key, SchemaPrefix: prefix, Err: err}
	}
	return nil
}
