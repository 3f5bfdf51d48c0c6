package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ephico2real2/qrs/backend"
	fileBackend "github.com/ephico2real2/qrs/backend/file"
	"github.com/ephico2real2/qrs/backend/git"
	"github.com/ephico2real2/qrs/config"
	qrstest "github.com/ephico2real2/qrs/internal/test"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	goGit "github.com/go-git/go-git/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

var traceServerName = fmt.Sprintf("server-%d", rand.Int())

const productionQuotas = `
quotas:
  - namespace: prod
    limits:
      pods: "30"
  - namespace: critical
    limits:
      cpu: "6"
`

const renderedProductionQuotas = `apiVersion: v1
kind: ResourceQuota
metadata:
  name: prod-quota
  namespace: prod
spec:
  hard:
    pods: "30"
---
apiVersion: v1
kind: ResourceQuota
metadata:
  name: critical-quota
  namespace: critical
spec:
  hard:
    cpu: "6"`

//goland:noinspection GoUnhandledErrorResult
func Test_routesFileBackend(t *testing.T) {
	dir := t.TempDir()
	setUpQuotaFiles(t, dir)

	var backends backend.Backends
	backends = append(backends, &fileBackend.Backend{Config: config.FileConfig{Path: dir}})

	router := setUpRouter(t, backends, false)

	//////////////////////////////////////////////////////

	tests := []ExampleRequest{
		{
			method:     "GET",
			url:        "/",
			statusCode: 404,
			output:     `404 page not found`,
		},
		{
			method:     "GET",
			url:        "/production",
			statusCode: 200,
			output:     renderedProductionQuotas,
			headers: http.Header{
				"Content-Type":        []string{"application/yaml"},
				"X-Quota-Environment": []string{"production"},
				"X-Quota-Version":     []string{""},
				"X-Quota-Count":       []string{"2"},
			},
		},
		{
			method:     "GET",
			url:        "/staging",
			statusCode: 200,
			output: `apiVersion: v1
kind: ResourceQuota
metadata:
  name: dev-quota
  namespace: dev
spec:
  hard:
    requests.memory: 4Gi`,
			headers: http.Header{
				"Content-Type":        []string{"application/yaml"},
				"X-Quota-Environment": []string{"staging"},
				"X-Quota-Version":     []string{""},
				"X-Quota-Count":       []string{"1"},
			},
		},
		{
			method:     "GET",
			url:        "/empty",
			statusCode: 200,
			output:     ``,
			headers: http.Header{
				"Content-Type":        []string{"application/yaml"},
				"X-Quota-Environment": []string{"empty"},
				"X-Quota-Version":     []string{""},
				"X-Quota-Count":       []string{"0"},
			},
		},
		{
			method:     "GET",
			url:        "/missing",
			statusCode: 404,
			output:     `{"message":"no quota value file for environment: missing"}`,
		},
		{
			method:     "GET",
			url:        "/production?format=summary",
			statusCode: 200,
			output:     `{"critical.cpu":"6","prod.pods":"30"}`,
		},
		{
			method:     "GET",
			url:        "/production?format=summary&pretty=true",
			statusCode: 200,
			output: `{
  "critical.cpu": "6",
  "prod.pods": "30"
}`,
		},
		{
			method:     "GET",
			url:        "/duplicated",
			statusCode: 422,
			output:     `{"message":"quota set failed validation","violations":[{"index":1,"field":"namespace","message":"\"x\" is declared more than once"}]}`,
		},
		{
			method:     "GET",
			url:        "/incomplete",
			statusCode: 422,
			output:     `{"message":"quota set failed validation","violations":[{"index":0,"field":"namespace","message":"is required and must not be empty"}]}`,
		},
		{
			method:     "GET",
			url:        "/junk",
			statusCode: 500,
			output:     `{"message":"junk.yaml: error unmarshaling JSON: while decoding JSON: json: cannot unmarshal string into Go value of type map[string]interface {}"}`,
		},
		{
			method:     "GET",
			url:        "/production/status",
			statusCode: 501,
			output:     `{"message":"cluster inspection is not enabled"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.url, func(t *testing.T) {
			validateRequest(t, tt, router)
		})
	}
}

//goland:noinspection GoUnhandledErrorResult
func Test_routesGitBackend(t *testing.T) {
	gitDir, err := os.MkdirTemp("", "*")
	assert.NoError(t, err)
	defer os.Remove(gitDir)

	repo, err := goGit.PlainInit(gitDir, false)
	assert.NoError(t, err)

	wt, err := repo.Worktree()
	assert.NoError(t, err)

	_writeGitFile(t, gitDir, wt, "production.yaml", productionQuotas)

	var backends backend.Backends
	backends = append(backends, &git.Backend{
		Repo: repo,
	})

	expectedVersion := _getHash(repo)

	router := setUpRouter(t, backends, false)

	//////////////////////////////////////////////////////

	tests := []ExampleRequest{
		{
			method:     "GET",
			url:        "/production?norefresh", // don't refresh git
			statusCode: 200,
			output:     renderedProductionQuotas,
			headers: http.Header{
				"Content-Type":        []string{"application/yaml"},
				"X-Quota-Environment": []string{"production"},
				"X-Quota-Version":     []string{expectedVersion},
				"X-Quota-Count":       []string{"2"},
			},
		},
		{
			method:     "GET",
			url:        "/production/master?norefresh", // don't refresh git
			statusCode: 200,
			output:     renderedProductionQuotas,
		},
		{
			method:     "GET",
			url:        "/missing?norefresh", // don't refresh git
			statusCode: 404,
			output:     `{"message":"no quota value file for environment: missing"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.url, func(t *testing.T) {
			validateRequest(t, tt, router)
		})
	}
}

//goland:noinspection GoUnhandledErrorResult
func Test_routesDisabledLabels(t *testing.T) {
	dir := t.TempDir()
	setUpQuotaFiles(t, dir)

	var backends backend.Backends
	backends = append(backends, &fileBackend.Backend{Config: config.FileConfig{Path: dir}})

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)

	routing := Routing{
		ServerName:   traceServerName,
		ParentRouter: router,

		Backends: backends,
		AppConfig: config.ApplicationConfiguration{
			Git: config.GitConfig{DisableLabels: true},
		},
	}

	router.Route("/", func(r chi.Router) {
		require.NoError(t, routing.SetupFunctionalRoutes(r))
	})

	validateRequest(t, ExampleRequest{
		method:     "GET",
		url:        "/production/somebranch",
		statusCode: 500,
		output:     "{\"message\":\"cannot specify a label when `git.disableLabels` is true\"}",
	}, router)
}

//goland:noinspection GoUnhandledErrorResult
func Test_validateEndpoint(t *testing.T) {
	router := setUpRouter(t, nil, false)

	tests := []ExampleRequest{
		{
			method:     "POST",
			url:        "/validate",
			body:       strings.NewReader(productionQuotas),
			statusCode: 204,
			output:     ``,
		},
		{
			method:     "POST",
			url:        "/validate",
			body:       strings.NewReader(`{"quotas":[{"namespace":"prod","limits":{"pods":"30"},"extra":1}]}`),
			statusCode: 422,
			output:     `{"message":"quota set failed validation","violations":[{"index":0,"field":"extra","message":"unrecognized field"}]}`,
		},
		{
			method:     "POST",
			url:        "/validate",
			body:       strings.NewReader(`{"quotas":[{"namespace":"prod","limits":{"pods":"30"},"name":"my-own-name"}]}`),
			statusCode: 422,
			output:     `{"message":"quota set failed validation","violations":[{"index":0,"field":"name","message":"unrecognized field"}]}`,
		},
		{
			method:     "POST",
			url:        "/validate",
			body:       strings.NewReader(`other: true`),
			statusCode: 422,
			output:     `{"message":"quota set failed validation","violations":[{"index":-1,"field":"other","message":"unrecognized field"},{"index":-1,"message":"required field is missing"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			validateRequest(t, tt, router)
		})
	}
}

//goland:noinspection GoUnhandledErrorResult
func Test_routesResponseLoggingEnabled(t *testing.T) {
	dir := t.TempDir()
	setUpQuotaFiles(t, dir)

	var backends backend.Backends
	backends = append(backends, &fileBackend.Backend{Config: config.FileConfig{Path: dir}})

	router := setUpRouter(t, backends, false)

	var str bytes.Buffer
	log.Logger = zerolog.New(&str).With().Timestamp().Logger()

	validateRequest(t, ExampleRequest{
		method:     "GET",
		url:        "/production?logResponses=true",
		statusCode: 200,
		output:     renderedProductionQuotas,
	}, router)

	logOutput := str.String()
	assert.Contains(t, logOutput, "Response: apiVersion: v1")
}

//goland:noinspection GoUnhandledErrorResult
func Test_summaryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	setUpQuotaFiles(t, dir)

	var backends backend.Backends
	backends = append(backends, &fileBackend.Backend{Config: config.FileConfig{Path: dir}})

	router := setUpRouter(t, backends, false)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/production?format=summary", nil)
	router.ServeHTTP(rr, req)
	require.Equal(t, 200, rr.Code)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &flat))

	type namespaceSummary struct {
		Prod     struct{ Pods string `from:"pods"` } `from:"prod"`
		Critical struct{ Cpu string `from:"cpu"` }   `from:"critical"`
	}

	summary := namespaceSummary{}
	require.NoError(t, qrstest.UnmarshalSummaryTo(flat, &summary))

	assert.Equal(t, "30", summary.Prod.Pods)
	assert.Equal(t, "6", summary.Critical.Cpu)
}

//goland:noinspection GoUnhandledErrorResult
func Test_routesTracing(t *testing.T) {
	dir := t.TempDir()
	setUpQuotaFiles(t, dir)

	var backends backend.Backends
	backends = append(backends, &fileBackend.Backend{Config: config.FileConfig{Path: dir}})

	sr := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider()
	tracerProvider.RegisterSpanProcessor(sr)
	otel.SetTracerProvider(tracerProvider)

	router := setUpRouter(t, backends, true)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/production", nil)
	router.ServeHTTP(rr, req)
	require.Equal(t, 200, rr.Code)

	require.Len(t, sr.Ended(), 3)

	assertSpan(t, sr.Ended()[0],
		"loadQuotaSource",
		trace.SpanKindServer,
		[]attribute.KeyValue{}...,
	)

	assertSpan(t, sr.Ended()[1],
		"render",
		trace.SpanKindServer,
		[]attribute.KeyValue{}...,
	)

	assertSpan(t, sr.Ended()[2],
		"/{environment}",
		trace.SpanKindServer,
		attribute.String("http.server_name", traceServerName),
		attribute.Int("http.status_code", http.StatusOK),
		attribute.String("http.method", "GET"),
		attribute.String("http.target", "/production"),
		attribute.String("http.route", "/{environment}"),
	)
}

func assertSpan(t *testing.T, span sdktrace.ReadOnlySpan, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) {
	assert.Equal(t, name, span.Name())
	assert.Equal(t, kind, span.SpanKind())

	got := make(map[attribute.Key]attribute.Value, len(span.Attributes()))
	for _, a := range span.Attributes() {
		got[a.Key] = a.Value
	}
	for _, want := range attrs {
		if !assert.Contains(t, got, want.Key) {
			continue
		}
		assert.Equal(t, got[want.Key], want.Value)
	}
}

func validateRequest(t *testing.T, tt ExampleRequest, router http.Handler) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(tt.method, tt.url, tt.body)

	router.ServeHTTP(rr, req)

	assert.Equal(t, tt.statusCode, rr.Code)
	assert.Equal(t, tt.output, strings.TrimSpace(rr.Body.String()))

	if tt.headers != nil {
		assert.Equal(t, tt.headers, rr.Header())
	}
}

func setUpRouter(t *testing.T, bs backend.Backends, traceEnabled bool) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)

	routing := Routing{
		ServerName:   traceServerName,
		ParentRouter: router,

		Backends: bs,
		AppConfig: config.ApplicationConfiguration{
			Tracing: config.Tracing{
				Enabled: traceEnabled,
			},
		},
	}

	router.Route("/", func(r chi.Router) {
		err := routing.SetupFunctionalRoutes(r)
		assert.NoError(t, err)
	})
	return router
}

func setUpQuotaFiles(t *testing.T, dir string) {
	_writeFile(t, dir, "production.yaml", productionQuotas)

	_writeFile(t, dir, "staging.yaml", `
quotas:
  - namespace: dev
    hard:
      requests.memory: 4Gi
`)

	_writeFile(t, dir, "empty.yaml", `quotas: []`)

	_writeFile(t, dir, "duplicated.yaml", `
quotas:
  - namespace: x
    limits:
      pods: "30"
  - namespace: x
    limits:
      cpu: "6"
`)

	_writeFile(t, dir, "incomplete.yaml", `
quotas:
  - limits:
      pods: "30"
`)

	_writeFile(t, dir, "junk.yaml", `junk sdasdasda`)

	_writeFile(t, dir, "README.md", `not a value file`)
}

type ExampleRequest struct {
	method     string
	url        string
	body       io.Reader
	statusCode int
	output     string
	headers    http.Header
}
