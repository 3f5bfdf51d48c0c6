package filetypes

type Decrypter interface {
	Decrypt(data []byte) ([]byte, error)
}

// YamlContext carries the per-backend YAML read options, currently just the decrypter
// applied before parsing.
type YamlContext struct {
	Decrypter Decrypter
}
