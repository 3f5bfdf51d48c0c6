package config

type Configuration struct {
	ApplicationConfigFileYmlPath string `env:"APP_CONFIG_FILE_YML_PATH" envDefault:"application.yml"`
}

// ApplicationConfiguration Must use full names for `sigs.k8s.io/yaml`
type ApplicationConfiguration struct {
	Server     Server
	Prometheus Prometheus
	File       FileConfig
	Git        GitConfig
	Cluster    ClusterConfig
	Renderer   RendererConfig
	Defaults   Defaults
	Tracing    Tracing
}

type Defaults struct {
	LogResponses    bool
	PrettyPrintJson bool
}

type Server struct {
	Port int
}

type Tracing struct {
	Enabled         bool
	Endpoint        string
	SamplerFraction float64
}

type Prometheus struct {
	Path string
}

type FileConfig struct {
	Order    int
	Disabled bool

	Path string // directory holding one quota value file per environment
}

type RendererConfig struct {
	// TemplatePath optionally points at a manifest template that replaces the
	// default document marshalling
	TemplatePath string `json:"templatePath"`
}
