package api

import (
	"strings"

	"github.com/ephico2real2/qrs/quota"
	"github.com/ephico2real2/qrs/utils"
)

var joinerFunc = func(k []string) string {
	return strings.Join(k, ".")
}

// summarise produces the flat `namespace.resource -> value` view of a rendered set,
// for callers that want a quick diffable overview rather than full manifests.
func summarise(manifests []quota.Manifest) map[string]any {
	nested := make(map[string]any, len(manifests))

	for _, m := range manifests {
		limits := make(map[string]any, len(m.Spec.Hard))
		for name, value := range m.Spec.Hard {
			limits[string(name)] = value
		}
		nested[m.Metadata.Namespace] = limits
	}

	return utils.Flatten(nested, joinerFunc)
}
