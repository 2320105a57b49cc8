// Package paymentid implements the x402mcp payment-identifier extension
// (spec §4.6): a self-contained, namespaced idempotency-key extension
// living under the "payment-identifier" key of a PaymentRequired's or
// PaymentPayload's Extensions map. It is new to this module — the teacher
// has no extensions concept — built from the spec's explicit ID-generation
// and validation rules.
package paymentid

import (
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
)

// ExtensionKey is the key under which this extension lives in an
// Extensions map.
const ExtensionKey = "payment-identifier"

// DefaultPrefix is prepended to generated IDs.
const DefaultPrefix = "pay_"

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

const (
	minIDLength = 16
	maxIDLength = 128
)

// Info is the extension's info record: whether the server requires an ID,
// and the ID itself once attached.
type Info struct {
	Required bool   `json:"required"`
	ID       string `json:"id,omitempty"`
}

// idSchemaShape mirrors Info for JSON Schema reflection; jsonschema tags
// encode the spec's length/charset constraints and the required flag.
type idSchemaShape struct {
	Required bool   `json:"required" jsonschema:"required,description=Whether the payment-identifier extension is mandatory for this tool"`
	ID       string `json:"id,omitempty" jsonschema:"pattern=^[a-zA-Z0-9_-]+$,minLength=16,maxLength=128,description=Opaque idempotency key; ASCII letters/digits/underscore/hyphen"`
}

// Extension is the full extension record declared by a server:
// {info: Info, schema: JSONSchema}.
type Extension struct {
	Info   Info              `json:"info"`
	Schema *jsonschema.Schema `json:"schema"`
}

// Declare builds the extension record a server advertises in a
// PaymentRequired.Extensions["payment-identifier"] entry.
func Declare(required bool) Extension {
	reflector := &jsonschema.Reflector{ExpandedStruct: true}
	schema := reflector.Reflect(&idSchemaShape{})
	return Extension{
		Info:   Info{Required: required},
		Schema: schema,
	}
}

// IsValidID reports whether id satisfies the spec's charset (ASCII
// [a-zA-Z0-9_-]) and length (16-128 inclusive) constraints.
func IsValidID(id string) bool {
	if len(id) < minIDLength || len(id) > maxIDLength {
		return false
	}
	return idPattern.MatchString(id)
}

// GenerateID produces a fresh ID of the form "<prefix>" + 32 hex characters
// derived from a version-4 UUID with hyphens removed. prefix defaults to
// DefaultPrefix when empty.
func GenerateID(prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	raw := uuid.New()
	hexID := hex.EncodeToString(raw[:])
	return prefix + hexID
}

// Append attaches an ID to extensions["payment-identifier"] if and only if
// the server already declared the extension there. It is a no-op if the
// key is absent. When id is non-empty it is validated and used verbatim;
// when empty, a fresh ID is generated via GenerateID(DefaultPrefix).
// Returns an error if a provided id fails validation.
func Append(extensions map[string]any, id string) error {
	if extensions == nil {
		return nil
	}
	raw, ok := extensions[ExtensionKey]
	if !ok {
		return nil
	}

	if id != "" && !IsValidID(id) {
		return fmt.Errorf("paymentid: invalid id %q: must be %d-%d chars of [a-zA-Z0-9_-]", id, minIDLength, maxIDLength)
	}
	if id == "" {
		id = GenerateID(DefaultPrefix)
	}

	info := infoFromAny(raw)
	info.ID = id
	extensions[ExtensionKey] = map[string]any{
		"info":   map[string]any{"required": info.Required, "id": info.ID},
		"schema": schemaFromAny(raw),
	}
	return nil
}

// Extract returns the id carried in payload.Extensions["payment-identifier"],
// or "" if the extension is absent. With validate=true, a malformed id
// returns an error instead of being silently accepted.
func Extract(extensions map[string]any, validate bool) (string, error) {
	if extensions == nil {
		return "", nil
	}
	raw, ok := extensions[ExtensionKey]
	if !ok {
		return "", nil
	}
	id := infoFromAny(raw).ID
	if id == "" {
		return "", nil
	}
	if validate && !IsValidID(id) {
		return "", fmt.Errorf("paymentid: extracted id %q fails validation", id)
	}
	return id, nil
}

// IsRequired reads info.required from an extension value that may be
// either a typed Extension/Info struct or a loose map[string]any
// reconstructed from JSON (spec §4.6: "robustly against an object
// possibly reconstructed from JSON").
func IsRequired(extensionValue any) bool {
	switch v := extensionValue.(type) {
	case Extension:
		return v.Info.Required
	case *Extension:
		if v == nil {
			return false
		}
		return v.Info.Required
	case Info:
		return v.Required
	case map[string]any:
		infoRaw, ok := v["info"]
		if !ok {
			return false
		}
		infoMap, ok := infoRaw.(map[string]any)
		if !ok {
			return false
		}
		required, _ := infoMap["required"].(bool)
		return required
	default:
		return false
	}
}

// ValidateRequirement asserts, when required is true, that the payload's
// extensions carry a present and well-formed id.
func ValidateRequirement(extensions map[string]any, required bool) error {
	if !required {
		return nil
	}
	id, err := Extract(extensions, true)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("paymentid: required but no id present")
	}
	return nil
}

// infoFromAny extracts an Info from either a typed Extension or a loose
// map[string]any, tolerating both representations per spec §4.6.
func infoFromAny(raw any) Info {
	switch v := raw.(type) {
	case Extension:
		return v.Info
	case *Extension:
		if v == nil {
			return Info{}
		}
		return v.Info
	case map[string]any:
		infoRaw, ok := v["info"]
		if !ok {
			return Info{}
		}
		infoMap, ok := infoRaw.(map[string]any)
		if !ok {
			return Info{}
		}
		required, _ := infoMap["required"].(bool)
		id, _ := infoMap["id"].(string)
		return Info{Required: required, ID: id}
	default:
		return Info{}
	}
}

// schemaFromAny recovers the declared JSON Schema from either
// representation, so Append preserves it across the map round-trip.
func schemaFromAny(raw any) any {
	switch v := raw.(type) {
	case Extension:
		return v.Schema
	case *Extension:
		if v == nil {
			return nil
		}
		return v.Schema
	case map[string]any:
		return v["schema"]
	default:
		return nil
	}
}
