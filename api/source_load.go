package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/ephico2real2/qrs/backend"
	gotel "github.com/ephico2real2/qrs/otel"
	"github.com/ephico2real2/qrs/utils"
	"github.com/rs/zerolog/log"
)

// ErrNoQuotaFile means no backend holds a value file for the requested environment.
var ErrNoQuotaFile = errors.New("no quota value file for environment")

var errStopIteration = errors.New("stop iteration")

// LoadQuotaSource walks the backends in priority order and returns the first value
// file whose base name matches the requested environment, e.g. `production.yaml` for
// environment `production`.
func LoadQuotaSource(ctxt context.Context, backends backend.Backends, req RenderRequest) (*Source, error) {
	if req.EnableTrace {
		_, span := gotel.GetTracer(ctxt).Start(ctxt, "loadQuotaSource", gotel.ServerOptions)
		defer span.End()
	}

	var lastErr error
	for _, each := range backends {
		source, err := loadFromBackend(ctxt, each, req)
		if err == nil {
			return source, nil
		}
		if !errors.Is(err, ErrNoQuotaFile) {
			log.Warn().Err(err).Msgf("Backend lookup failed for [%s]", req.Environment)
			lastErr = err
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %s", ErrNoQuotaFile, req.Environment)
}

func loadFromBackend(ctxt context.Context, b backend.Backend, req RenderRequest) (*Source, error) {
	state, err := b.GetCurrentState(ctxt, req.Labels.Branch, req.RefreshBackend)
	if err != nil {
		return nil, err
	}

	if state.Files == nil {
		return nil, ErrNoQuotaFile
	}

	var found *Source
	err = state.Files.ForEach(func(f backend.File) error {
		readable, suffix := f.IsReadable()
		if !readable {
			return nil
		}

		if utils.EnvironmentFromFileName(f.Name(), suffix) != req.Environment {
			return nil
		}

		document, e := f.ToMap()
		if e != nil {
			return fmt.Errorf("%s: %w", utils.StripGitPrefix(f.FullyQualifiedName()), e)
		}

		found = &Source{
			Environment: req.Environment,
			FileName:    f.FullyQualifiedName(),
			Version:     state.Version,
			Document:    document,
		}
		return errStopIteration
	})

	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, err
	}
	if found == nil {
		return nil, ErrNoQuotaFile
	}
	return found, nil
}
