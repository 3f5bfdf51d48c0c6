package test

import (
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/wolfeidau/unflatten"
)

// UnmarshalSummaryTo re-nests a flattened render summary, e.g. `prod.pods: "30"`,
// and marshals it into a result structure grouped per namespace. `mapstructure`
// metadata may be required for this to work.
func UnmarshalSummaryTo(flat map[string]any, outputStruct any) error {
	nested := unflatten.Unflatten(flat, func(k string) []string { return strings.Split(k, ".") })

	config := &mapstructure.DecoderConfig{Metadata: nil, ZeroFields: true, TagName: "from", Result: outputStruct}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}

	return decoder.Decode(nested)
}
