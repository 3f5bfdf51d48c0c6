package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/ephico2real2/qrs/backend"
	"github.com/ephico2real2/qrs/config"
	"github.com/ephico2real2/qrs/filetypes"
	"github.com/ephico2real2/qrs/sops"
	"github.com/rs/zerolog/log"
)

func (s *Backend) Init(_ context.Context, appConfig config.ApplicationConfiguration) error {
	s.Config = appConfig.File
	s.YamlContext = filetypes.YamlContext{
		Decrypter: sops.Decrypter{},
	}
	log.Debug().Msgf("Reading quota files from %s", s.Config.Path)
	return nil
}

func (s *Backend) GetCurrentState(_ context.Context, branch string, _ bool) (*backend.State, error) {
	if branch != "" {
		return nil, errors.New("labels, multiple branches not supported by File backend")
	}

	return &backend.State{
		Files:   fileItrWrapper{DirPath: s.Config.Path, YamlContext: s.YamlContext},
		Version: "",
	}, nil
}

func (s *Backend) Close() {
	// NOOP
}

func (g fileWrapper) Name() string {
	return g.FileName
}

func (g fileWrapper) IsReadable() (bool, string) {
	suffix := filepath.Ext(g.Name())
	if suffix != ".yml" && suffix != ".yaml" {
		return false, ""
	}
	return true, suffix
}

func (g fileWrapper) ToMap() (map[string]any, error) {
	return filetypes.FromYamlToMap(g, g.YamlContext)
}

func (g fileWrapper) FullyQualifiedName() string {
	return g.Path
}

func (g fileWrapper) Location() string {
	return g.Dir
}

func (g fileWrapper) Data() backend.Blob {
	return file{Path: g.Path}
}

func (g file) Reader() (io.ReadCloser, error) {
	return os.Open(g.Path)
}

func (itr fileItrWrapper) ForEach(handler func(f backend.File) error) error {
	dirEntry, err := os.ReadDir(itr.DirPath)
	if err != nil {
		return err
	}

	for _, d := range dirEntry {
		name := d.Name()
		filePath := path.Join(itr.DirPath, name)
		if e := handler(fileWrapper{FileName: name, Path: filePath, Dir: itr.DirPath, YamlContext: itr.YamlContext}); e != nil {
			return e
		}
	}
	return nil
}
