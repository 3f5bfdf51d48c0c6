package quota

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	gotel "github.com/ephico2real2/qrs/otel"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"
)

const documentSeparator = "---\n"

// Renderer turns a validated Set into an ordered stream of ResourceQuota documents.
// It performs no I/O; rendering the same set twice yields byte-identical output.
type Renderer struct {
	EnableTrace bool

	// Template, when set, replaces the default marshalling of each document.
	Template *template.Template
}

// Render produces one manifest per declaration, in input order. The set must already
// have passed validation; there is no fallback scope for a missing namespace.
func (r *Renderer) Render(ctxt context.Context, set *Set) []Manifest {
	if r.EnableTrace {
		_, span := gotel.GetTracer(ctxt).Start(ctxt, "render", gotel.ServerOptions)
		defer span.End()
	}

	manifests := make([]Manifest, 0, len(set.Quotas))
	for _, declaration := range set.Quotas {
		hard := make(map[corev1.ResourceName]string, len(declaration.Limits))
		for name, value := range declaration.Limits {
			hard[corev1.ResourceName(name)] = value
		}

		manifests = append(manifests, Manifest{
			APIVersion: corev1.SchemeGroupVersion.String(),
			Kind:       resourceQuotaKind,
			Metadata: ObjectMeta{
				Name:      DerivedName(declaration.Namespace),
				Namespace: declaration.Namespace,
			},
			Spec: ManifestSpec{Hard: hard},
		})
	}

	return manifests
}

// MarshalStream concatenates the manifests into one output stream, successive documents
// separated by a `---` boundary marker.
func (r *Renderer) MarshalStream(manifests []Manifest) ([]byte, error) {
	documents := make([][]byte, 0, len(manifests))

	for i := range manifests {
		document, err := r.marshalManifest(&manifests[i])
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", manifests[i].Metadata.Name, err)
		}
		if !bytes.HasSuffix(document, []byte("\n")) {
			document = append(document, '\n')
		}
		documents = append(documents, document)
	}

	return bytes.Join(documents, []byte(documentSeparator)), nil
}

func (r *Renderer) marshalManifest(manifest *Manifest) ([]byte, error) {
	if r.Template == nil {
		return yaml.Marshal(manifest)
	}

	var buf bytes.Buffer
	if err := r.Template.Execute(&buf, manifest); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
