package translator

import "fmt"

// Schema is a minimal structural contract for a protocol's payload shape:
// the set of fields that must be present. Real schema validation
// (JSON Schema, protobuf descriptors) is out of scope; this mirrors
// spec.md's "schema-validated translation inside each component" at the
// level of detail the core cares about.
type Schema struct {
	Protocol       string
	RequiredFields []string
}

// RegisterSchema adds or replaces the schema for a protocol.
func (t *Translator) RegisterSchema(schema Schema) {
	t.schemaMu.Lock()
	defer t.schemaMu.Unlock()
	t.schemas[schema.Protocol] = schema
}

// GetSchema returns the registered schema for a protocol, if any.
func (t *Translator) GetSchema(protocol string) (Schema, bool) {
	t.schemaMu.RLock()
	defer t.schemaMu.RUnlock()
	s, ok := t.schemas[protocol]
	return s, ok
}

// ValidateAgainstSchema reports every required field missing from
// payload for protocol's registered schema. A protocol with no
// registered schema always validates.
func (t *Translator) ValidateAgainstSchema(protocol string, payload map[string]interface{}) []string {
	schema, ok := t.GetSchema(protocol)
	if !ok {
		return nil
	}
	var missing []string
	for _, field := range schema.RequiredFields {
		if _, present := payload[field]; !present {
			missing = append(missing, fmt.Sprintf("missing required field %q for protocol %s", field, protocol))
		}
	}
	return missing
}
