package documents

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xaenox/safechat/internal/models"
)

type seedFile struct {
	Documents []models.Document `yaml:"documents"`
}

// LoadSeedFile reads a YAML file of the form
//
//	documents:
//	  - chunk_id: helplines-1
//	    title: Women helplines
//	    contents: ...
func LoadSeedFile(path string) ([]models.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("documents: read seed file: %w", err)
	}
	return ParseSeed(bytes.NewReader(raw))
}

func ParseSeed(r io.Reader) ([]models.Document, error) {
	var seed seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("documents: decode seed: %w", err)
	}
	return seed.Documents, nil
}
