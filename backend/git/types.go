package git

import (
	"sync"

	"github.com/ephico2real2/qrs/config"
	"github.com/ephico2real2/qrs/filetypes"
	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

type Backend struct {
	Config      config.GitConfig
	Repo        *goGit.Repository
	PublicKeys  *ssh.PublicKeys
	YamlContext filetypes.YamlContext
	EnableTrace bool

	commitsLock sync.Mutex
}

func (s *Backend) Order() int {
	return s.Config.Order
}

type fileItrWrapper struct {
	Dir         string
	RepoUri     string
	Files       *object.FileIter
	YamlContext filetypes.YamlContext
}

type fileWrapper struct {
	Dir         string
	RepoUri     string
	File        *object.File
	YamlContext filetypes.YamlContext
}

type fileBlob struct {
	Blob *object.Blob
}
