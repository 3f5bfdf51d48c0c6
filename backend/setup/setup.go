package setup

import (
	"context"
	"sort"

	"github.com/ephico2real2/qrs/backend"
	"github.com/ephico2real2/qrs/backend/file"
	"github.com/ephico2real2/qrs/backend/git"
	"github.com/ephico2real2/qrs/config"
	"github.com/rs/zerolog/log"
)

func Init(ctx context.Context, appConfig config.ApplicationConfiguration) (backend.Backends, error) {
	var backends backend.Backends

	if appConfig.Git.Disabled {
		log.Info().Msg("Git backend is disabled")
	} else {
		log.Info().Msg("Enabling Git backend")
		backends = append(backends, &git.Backend{EnableTrace: appConfig.Tracing.Enabled})
	}

	if appConfig.File.Disabled {
		log.Info().Msg("File backend is disabled")
	} else {
		log.Info().Msg("Enabling File backend")
		backends = append(backends, &file.Backend{})
	}

	for _, each := range backends {
		if backendErr := each.Init(ctx, appConfig); backendErr != nil {
			return nil, backendErr
		}
	}

	sort.SliceStable(backends, backend.Sorter{Backends: backends}.Sort())

	return backends, nil
}
