// Package seed reads contact lists from YAML files and watches them for
// changes. Seed files are input only; the directory never writes back.
package seed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/starford/rolodex/internal/models"
)

// File is the on-disk layout of a seed file:
//
//	contacts:
//	  - name: Amy
//	    phone_number: "111"
//	    email: amy@example.com
type File struct {
	Contacts []models.Contact `yaml:"contacts"`
}

// Load reads and decodes the seed file at path.
func Load(path string) ([]models.Contact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes seed file content. An empty document yields no contacts.
func Parse(data []byte) ([]models.Contact, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: parse: %w", err)
	}
	return f.Contacts, nil
}
