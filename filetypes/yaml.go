package filetypes

import (
	"fmt"
	"io"

	"github.com/ephico2real2/qrs/backend"
	"sigs.k8s.io/yaml"
)

const sopsMetadataKey = "sops"

func FromYamlToMap(f backend.File, ctx YamlContext) (map[string]any, error) {
	bytes, err := ToBytes(f)
	if err != nil {
		return nil, err
	}

	if ctx.Decrypter != nil {
		if bytes, err = ctx.Decrypter.Decrypt(bytes); err != nil {
			return nil, err
		}
	}

	var mapStructuredData map[string]any
	if e := yaml.Unmarshal(bytes, &mapStructuredData); e != nil {
		return nil, e
	}

	// The encryption envelope is not part of the quota payload
	delete(mapStructuredData, sopsMetadataKey)

	return mapStructuredData, nil
}

func ToBytes(f backend.File) ([]byte, error) {
	reader, err := f.Data().Reader()
	if err != nil {
		return nil, err
	}

	defer func(reader io.ReadCloser) {
		if e := reader.Close(); e != nil {
			fmt.Println(e)
		}
	}(reader)

	return io.ReadAll(reader)
}
