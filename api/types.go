package api

// RenderRequest captures everything one render invocation needs; it is built once per
// HTTP request and immutable thereafter.
type RenderRequest struct {
	Environment string
	Labels      LabelsRequest

	RefreshBackend  bool
	SummaryFormat   bool
	LogResponses    bool
	PrettyPrintJson bool

	EnableTrace bool
}

type LabelsRequest struct {
	Branch string
}

// Source is one environment's raw quota payload as loaded from a backend, prior to
// schema validation.
type Source struct {
	Environment string
	FileName    string
	Version     string
	Document    map[string]any
}
