package gameplay

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeSchema(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write schema %s: %v", name, err)
	}
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	dir := t.TempDir()
	writeSchema(t, dir, "match_end.v1.json", `{
		"type": "object",
		"required": ["match_id", "result"],
		"properties": {
			"match_id": {"type": "string"},
			"result": {"type": "string", "enum": ["win", "loss", "draw"]},
			"online": {"type": "boolean"}
		},
		"additionalProperties": false
	}`)
	writeSchema(t, dir, "move.v1.json", `{
		"type": "object",
		"required": ["match_id", "action"],
		"properties": {
			"match_id": {"type": "string"},
			"action": {"type": "string"},
			"count": {"type": "integer", "minimum": 1}
		},
		"additionalProperties": false
	}`)
	v, err := NewValidator(dir)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestValidatorAcceptsConformingPayload(t *testing.T) {
	v := newTestValidator(t)
	payload, _ := json.Marshal(map[string]any{
		"match_id": "0d4f5f5e-1111-2222-3333-444455556666",
		"result":   "win",
		"online":   true,
	})
	if err := v.Validate("match_end", payload); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidatorRejectsBadPayloads(t *testing.T) {
	v := newTestValidator(t)
	cases := []struct {
		name      string
		eventType string
		payload   string
	}{
		{"missing required", "match_end", `{"match_id": "x"}`},
		{"bad enum", "match_end", `{"match_id": "x", "result": "stalemate"}`},
		{"extra field", "match_end", `{"match_id": "x", "result": "win", "cheat": true}`},
		{"count below minimum", "move", `{"match_id": "x", "action": "place_wall", "count": 0}`},
		{"not json", "match_end", `{{{`},
		{"unknown event", "teleport", `{}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := v.Validate(c.eventType, json.RawMessage(c.payload))
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}
