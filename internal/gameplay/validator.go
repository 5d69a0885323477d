package gameplay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrValidation can be used with errors.Is to detect payload validation failures.
var ErrValidation = errors.New("validation failed")

// Validator checks gameplay event payloads against per-event JSON schemas.
// Retried deliveries with mangled bodies are rejected here before they can
// touch quest progress.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator loads all *.json schema files from schemaDir. The file name
// (minus the .v1.json suffix) is the event type it validates.
func NewValidator(schemaDir string) (*Validator, error) {
	entries, err := os.ReadDir(schemaDir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir %q: %w", schemaDir, err)
	}
	schemas := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		eventType := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		eventType = strings.TrimSuffix(eventType, ".v1")
		path := filepath.Join(schemaDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		id := "https://auraplay.dev/schemas/" + eventType
		schemas[eventType], err = jsonschema.CompileString(id, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", eventType, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// Validate performs hard reject: unknown event types and non-conforming
// payloads both fail.
func (v *Validator) Validate(eventType string, payload json.RawMessage) error {
	schema, ok := v.schemas[eventType]
	if !ok {
		return fmt.Errorf("%w: unknown event type %q", ErrValidation, eventType)
	}
	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
