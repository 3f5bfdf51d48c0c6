package quota

import (
	"fmt"
	"sort"
	"strings"

	"github.com/emirpasic/gods/sets/hashset"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/validation"
)

// Validate checks every declaration in the set against the structural contract:
// a non-empty DNS-1123 namespace, unique across the set, and at least one limit whose
// name is a qualified resource name and whose value parses as a quantity.
//
// The whole set is walked and the full batch of violations returned; an empty set is
// legitimate and yields no violations.
func Validate(set *Set) Violations {
	var violations Violations

	seenNamespaces := hashset.New()

	for i, declaration := range set.Quotas {
		violations = append(violations, validateNamespace(i, declaration.Namespace, seenNamespaces)...)
		violations = append(violations, validateLimits(i, declaration.Limits)...)
	}

	return violations
}

func validateNamespace(index int, namespace string, seen *hashset.Set) Violations {
	if namespace == "" {
		return Violations{atIndex(index, "namespace", "is required and must not be empty")}
	}

	if errs := validation.IsDNS1123Label(namespace); len(errs) > 0 {
		return Violations{atIndex(index, "namespace", "%s", strings.Join(errs, "; "))}
	}

	// Two declarations sharing a namespace would collide on the derived manifest name,
	// so reject rather than silently emit duplicates.
	if seen.Contains(namespace) {
		return Violations{atIndex(index, "namespace", "%q is declared more than once", namespace)}
	}
	seen.Add(namespace)

	return nil
}

func validateLimits(index int, limits map[string]string) Violations {
	if len(limits) == 0 {
		return Violations{atIndex(index, fieldLimits, "must contain at least one resource limit")}
	}

	var violations Violations
	for _, name := range sortedKeys(limits) {
		field := fmt.Sprintf("%s[%s]", fieldLimits, name)

		if errs := validation.IsQualifiedName(name); len(errs) > 0 {
			violations = append(violations, atIndex(index, field, "invalid resource name: %s", strings.Join(errs, "; ")))
			continue
		}

		value := limits[name]
		if value == "" {
			violations = append(violations, atIndex(index, field, "value must not be empty"))
			continue
		}
		if _, err := resource.ParseQuantity(value); err != nil {
			violations = append(violations, atIndex(index, field, "value %q is not a valid quantity", value))
		}
	}

	return violations
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
