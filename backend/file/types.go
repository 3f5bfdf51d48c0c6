package file

import (
	"github.com/ephico2real2/qrs/config"
	"github.com/ephico2real2/qrs/filetypes"
)

type Backend struct {
	Config      config.FileConfig
	YamlContext filetypes.YamlContext
}

func (s *Backend) Order() int {
	return s.Config.Order
}

type fileItrWrapper struct {
	DirPath     string
	YamlContext filetypes.YamlContext
}

type fileWrapper struct {
	FileName    string
	Path        string
	Dir         string
	YamlContext filetypes.YamlContext
}

type file struct {
	Path string
}
