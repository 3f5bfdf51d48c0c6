package backend

import (
	"context"
	"github.com/ephico2real2/qrs/config"
	"io"
)

type Backends []Backend

// Backend supplies the per-environment quota value files. Implementations must be
// safe to call repeatedly; GetCurrentState may refresh remote state when asked.
type Backend interface {
	Ordering
	Init(ctxt context.Context, config config.ApplicationConfiguration) error
	GetCurrentState(ctxt context.Context, branch string, refresh bool) (*State, error)
	Close()
}

type Ordering interface {
	Order() int // lower is higher priority
}

type State struct {
	Version string
	Files   FileIterator
}

type FileIterator interface {
	ForEach(f func(f File) error) error
}

type File interface {
	Name() string
	FullyQualifiedName() string
	Location() string

	IsReadable() (bool, string)
	Data() Blob
	ToMap() (map[string]any, error)
}

type Blob interface {
	Reader() (io.ReadCloser, error)
}
