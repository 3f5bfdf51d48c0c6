package quota

import (
	"text/template"

	"github.com/Masterminds/sprig"
)

// NewManifestTemplate parses an operator-supplied document template, e.g. for sites
// that stamp extra labels or annotations onto every rendered quota. The template is
// executed once per Manifest with the full sprig function set available.
func NewManifestTemplate(text string) (*template.Template, error) {
	return template.New("manifest").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
}
