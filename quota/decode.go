package quota

import (
	"github.com/mitchellh/mapstructure"
	"sigs.k8s.io/yaml"
)

const (
	topLevelKey = "quotas"

	fieldLimits    = "limits"
	fieldHardAlias = "hard" // what the rendered resource calls the field
)

// Parse decodes and validates a raw quota payload in one pass, returning either a
// fully accepted Set or the complete batch of violations. It never partially accepts.
func Parse(data []byte) (*Set, Violations) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, Violations{atTopLevel("payload is not a YAML/JSON object: %v", err)}
	}
	return ParseMap(raw)
}

// ParseMap is Parse for a payload that has already been unmarshalled to a map,
// e.g. by a backend file read.
func ParseMap(raw map[string]any) (*Set, Violations) {
	set, violations := decodeSet(raw)
	if len(violations) > 0 {
		return nil, violations
	}
	if violations = Validate(set); len(violations) > 0 {
		return nil, violations
	}
	return set, nil
}

// decodeSet enforces the closed schema: exactly one recognised top-level key bound to
// an array of {namespace, limits|hard} objects. Every deviation is reported with the
// offending element's index and field.
func decodeSet(raw map[string]any) (*Set, Violations) {
	var violations Violations

	for key := range raw {
		if key != topLevelKey {
			violations = append(violations, Violation{Index: TopLevel, Field: key, Message: "unrecognized field"})
		}
	}

	entries, ok := raw[topLevelKey]
	if !ok || entries == nil {
		violations = append(violations, atTopLevel("required field is missing"))
		return nil, violations
	}

	list, ok := entries.([]any)
	if !ok {
		violations = append(violations, atTopLevel("must be an array of quota declarations"))
		return nil, violations
	}

	declarations := make([]Declaration, 0, len(list))
	for i, element := range list {
		entry, ok := element.(map[string]any)
		if !ok {
			violations = append(violations, atIndex(i, "", "must be an object"))
			continue
		}

		entry, vs := canonicaliseLimitsKey(i, entry)
		violations = append(violations, vs...)

		declaration, vs := decodeDeclaration(i, entry)
		violations = append(violations, vs...)

		declarations = append(declarations, declaration)
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return &Set{Quotas: declarations}, nil
}

// canonicaliseLimitsKey renames a `hard` key to `limits` so the rest of the pipeline
// only ever sees one spelling. Declaring both is a violation.
func canonicaliseLimitsKey(index int, entry map[string]any) (map[string]any, Violations) {
	hardVal, hasHard := entry[fieldHardAlias]
	if !hasHard {
		return entry, nil
	}

	if _, hasLimits := entry[fieldLimits]; hasLimits {
		return entry, Violations{atIndex(index, fieldHardAlias, "cannot be combined with %q", fieldLimits)}
	}

	renamed := make(map[string]any, len(entry))
	for k, v := range entry {
		if k != fieldHardAlias {
			renamed[k] = v
		}
	}
	renamed[fieldLimits] = hardVal
	return renamed, nil
}

func decodeDeclaration(index int, entry map[string]any) (Declaration, Violations) {
	var violations Violations
	var declaration Declaration

	metadata := mapstructure.Metadata{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: &metadata,
		Result:   &declaration,
		TagName:  "json",
	})
	if err != nil {
		return declaration, Violations{atIndex(index, "", "decoder setup failed: %v", err)}
	}

	if err := decoder.Decode(entry); err != nil {
		if typed, ok := err.(*mapstructure.Error); ok {
			for _, msg := range typed.Errors {
				violations = append(violations, atIndex(index, "", "%s", msg))
			}
		} else {
			violations = append(violations, atIndex(index, "", "%v", err))
		}
		return declaration, violations
	}

	for _, unused := range metadata.Unused {
		violations = append(violations, atIndex(index, unused, "unrecognized field"))
	}

	return declaration, violations
}
