// Package testutil provides shared test helpers for building directories
// and seed files.
package testutil

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/starford/rolodex/internal/contactservice"
	"github.com/starford/rolodex/internal/directory"
	"github.com/starford/rolodex/internal/models"
	"github.com/starford/rolodex/internal/seed"
)

// TestService creates a service over a fresh directory of the given
// capacity, pre-filled with contacts.
func TestService(t *testing.T, capacity int, contacts ...models.Contact) *contactservice.Service {
	t.Helper()
	dir, err := directory.New(capacity)
	if err != nil {
		t.Fatal(err)
	}
	if err := dir.AddAll(contacts); err != nil {
		t.Fatal(err)
	}
	return contactservice.NewService(dir, nil)
}

// SeedFile writes contacts as a seed file in a temporary directory and
// returns its path.
func SeedFile(t *testing.T, contacts ...models.Contact) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.yaml")
	WriteSeed(t, path, contacts...)
	return path
}

// WriteSeed overwrites the seed file at path with contacts.
func WriteSeed(t *testing.T, path string, contacts ...models.Contact) {
	t.Helper()
	data, err := yaml.Marshal(seed.File{Contacts: contacts})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// FreePort returns a TCP port that was free a moment ago.
func FreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
