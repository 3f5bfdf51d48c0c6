package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/template"

	"github.com/ephico2real2/qrs/backend"
	"github.com/ephico2real2/qrs/cluster"
	"github.com/ephico2real2/qrs/config"
	"github.com/ephico2real2/qrs/quota"
	"github.com/go-chi/chi/v5"
	"github.com/riandyrn/otelchi"
	"github.com/rs/zerolog/log"
)

const (
	applicationJSON = "application/json"
	applicationYAML = "application/yaml"
)

type Routing struct {
	ServerName   string
	ParentRouter chi.Router

	AppConfig config.ApplicationConfiguration
	Backends  backend.Backends

	// ManifestTemplate optionally overrides default document marshalling
	ManifestTemplate *template.Template

	// Inspector is nil unless live-cluster inspection is enabled
	Inspector *cluster.Inspector
}

func (rtr *Routing) SetupFunctionalRoutes(r chi.Router) error {
	if e := rtr.enableOTelForRouter(r); e != nil {
		return e
	}

	r.Post("/validate", rtr.validateHandler())
	r.Get("/{environment}", rtr.renderHandler())
	r.Get("/{environment}/status", rtr.statusHandler())
	r.Get("/{environment}/{label}", rtr.renderHandler())

	return nil
}

func (rtr *Routing) renderHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		req, err := rtr.newRequestFromChi(r)
		if err != nil {
			rtr.writeError(w, err)
			return
		}

		source, err := LoadQuotaSource(r.Context(), rtr.Backends, req)
		if err != nil {
			rtr.writeLoadError(w, err)
			return
		}

		set, violations := quota.ParseMap(source.Document)
		if violations != nil {
			validationFailures.WithLabelValues(req.Environment).Inc()
			rtr.writeViolations(w, violations)
			return
		}

		renderer := rtr.newRenderer()
		manifests := renderer.Render(r.Context(), set)

		writeHeaders(w.Header(), req, source, len(manifests))

		rendersTotal.WithLabelValues(req.Environment).Inc()
		manifestsRendered.WithLabelValues(req.Environment).Add(float64(len(manifests)))

		if req.SummaryFormat {
			summaryBytes, outputErr := marshalResponseJson(summarise(manifests), req.PrettyPrintJson)
			rtr.handleOutput(w, outputErr, applicationJSON, summaryBytes, req.LogResponses)
			return
		}

		stream, outputErr := renderer.MarshalStream(manifests)
		rtr.handleOutput(w, outputErr, applicationYAML, stream, req.LogResponses)
	}
}

func (rtr *Routing) validateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		bs, err := io.ReadAll(r.Body)
		if err != nil {
			rtr.writeError(w, err)
			return
		}

		if _, violations := quota.Parse(bs); violations != nil {
			validationFailures.WithLabelValues("adhoc").Inc()
			rtr.writeViolations(w, violations)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (rtr *Routing) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		if rtr.Inspector == nil {
			rtr.writeErrorStatus(w, http.StatusNotImplemented, errors.New("cluster inspection is not enabled"))
			return
		}

		req, err := rtr.newRequestFromChi(r)
		if err != nil {
			rtr.writeError(w, err)
			return
		}

		source, err := LoadQuotaSource(r.Context(), rtr.Backends, req)
		if err != nil {
			rtr.writeLoadError(w, err)
			return
		}

		set, violations := quota.ParseMap(source.Document)
		if violations != nil {
			rtr.writeViolations(w, violations)
			return
		}

		renderer := rtr.newRenderer()
		manifests := renderer.Render(r.Context(), set)

		statuses, err := rtr.Inspector.Inspect(r.Context(), manifests)
		if err != nil {
			rtr.writeError(w, err)
			return
		}

		writeHeaders(w.Header(), req, source, len(manifests))

		statusBytes, outputErr := marshalResponseJson(statuses, req.PrettyPrintJson)
		rtr.handleOutput(w, outputErr, applicationJSON, statusBytes, req.LogResponses)
	}
}

func marshalResponseJson(val any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(val, "", "  ")
	}
	return json.Marshal(val)
}

func writeHeaders(header http.Header, req RenderRequest, source *Source, count int) {
	header.Set("X-Quota-Environment", req.Environment)
	header.Set("X-Quota-Version", source.Version)
	header.Set("X-Quota-Count", strconv.Itoa(count))
}

func (rtr *Routing) handleOutput(w http.ResponseWriter, err error, contentType string, bytes []byte, logResponses bool) {
	if err != nil {
		rtr.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(bytes)

	if logResponses {
		log.Debug().Msgf("Response: %s", string(bytes))
	}
}

func (rtr *Routing) writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNoQuotaFile) {
		rtr.writeErrorStatus(w, http.StatusNotFound, err)
		return
	}
	rtr.writeError(w, err)
}

func (rtr *Routing) writeError(w http.ResponseWriter, err error) {
	rtr.writeErrorStatus(w, http.StatusInternalServerError, err)
}

func (rtr *Routing) writeErrorStatus(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", applicationJSON)
	w.WriteHeader(status)

	info := map[string]any{"message": err.Error()}
	_ = json.NewEncoder(w).Encode(info)

	log.Error().Err(err).Stack().Msg("Response error")
}

func (rtr *Routing) writeViolations(w http.ResponseWriter, violations quota.Violations) {
	w.Header().Set("Content-Type", applicationJSON)
	w.WriteHeader(http.StatusUnprocessableEntity)

	info := map[string]any{
		"message":    "quota set failed validation",
		"violations": violations,
	}
	_ = json.NewEncoder(w).Encode(info)

	log.Info().Msgf("Rejected quota set: %v", violations.Error())
}

func (rtr *Routing) newRequestFromChi(r *http.Request) (RenderRequest, error) {
	environment := chi.URLParam(r, "environment")

	label := chi.URLParam(r, "label")
	if rtr.AppConfig.Git.DisableLabels && label != "" {
		return RenderRequest{}, errors.New("cannot specify a label when `git.disableLabels` is true")
	}

	queries := r.URL.Query()

	logResponses := overrideBooleanDefault(queries.Get("logResponses"), rtr.AppConfig.Defaults.LogResponses)
	prettyPrintJson := overrideBooleanDefault(queries.Get("pretty"), rtr.AppConfig.Defaults.PrettyPrintJson)

	return RenderRequest{
		Environment: environment,
		Labels:      LabelsRequest{Branch: label},

		RefreshBackend:  !queries.Has("norefresh"),
		SummaryFormat:   queries.Get("format") == "summary",
		LogResponses:    logResponses,
		PrettyPrintJson: prettyPrintJson,

		EnableTrace: rtr.AppConfig.Tracing.Enabled,
	}, nil
}

func (rtr *Routing) enableOTelForRouter(r chi.Router) error {
	if !rtr.AppConfig.Tracing.Enabled {
		return nil
	}

	if rtr.ServerName == "" || rtr.ParentRouter == nil {
		return errors.New("OTel not configured")
	}

	r.Use(otelchi.Middleware(rtr.ServerName, otelchi.WithChiRoutes(rtr.ParentRouter)))

	log.Info().Msgf("OpenTelemetry trace is enabled")
	return nil
}

func (rtr *Routing) newRenderer() quota.Renderer {
	return quota.Renderer{
		EnableTrace: rtr.AppConfig.Tracing.Enabled,
		Template:    rtr.ManifestTemplate,
	}
}

func overrideBooleanDefault(queryValue string, defaultVal bool) bool {
	reqVal := strings.ToLower(queryValue)
	if reqVal == "true" {
		return true
	} else if reqVal == "false" {
		return false
	}
	return defaultVal
}
