// Package directory implements the bounded, ordered contact collection.
//
// A Directory is not safe for concurrent use; callers that share one
// across goroutines must serialize access (see contactservice).
package directory

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/starford/rolodex/internal/apperr"
	"github.com/starford/rolodex/internal/models"
)

// Directory holds at most capacity contacts. Live entries always occupy
// entries[0:len(entries)] with no gaps.
type Directory struct {
	capacity int
	entries  []models.Contact
}

// New creates an empty Directory with the given fixed capacity.
func New(capacity int) (*Directory, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("directory: capacity must be at least 1, got %d", capacity)
	}
	return &Directory{
		capacity: capacity,
		entries:  make([]models.Contact, 0, capacity),
	}, nil
}

// Add appends a new contact. It returns apperr.ErrCapacityExceeded, leaving
// the directory untouched, when the directory is full. Duplicates are allowed.
func (d *Directory) Add(name, phoneNumber, email string) error {
	if len(d.entries) == d.capacity {
		return apperr.ErrCapacityExceeded
	}
	d.entries = append(d.entries, models.Contact{
		Name:        name,
		PhoneNumber: phoneNumber,
		Email:       email,
	})
	return nil
}

// AddAll appends contacts in order. Either all of them are stored or,
// when they do not fit in the remaining space, none are and
// apperr.ErrInsufficientSpace is returned.
func (d *Directory) AddAll(contacts []models.Contact) error {
	spaceLeft := d.capacity - len(d.entries)
	if len(contacts) > spaceLeft {
		return fmt.Errorf("%w: %d requested, %d free", apperr.ErrInsufficientSpace, len(contacts), spaceLeft)
	}
	d.entries = append(d.entries, contacts...)
	return nil
}

// Display returns the live contacts in storage order. The sequence is
// backed by a snapshot taken at call time and may be ranged over any
// number of times. An empty directory yields apperr.ErrEmpty.
func (d *Directory) Display() (iter.Seq[models.Contact], error) {
	if len(d.entries) == 0 {
		return nil, apperr.ErrEmpty
	}
	return slices.Values(slices.Clone(d.entries)), nil
}

// Contacts returns a copy of the live contacts in storage order.
func (d *Directory) Contacts() []models.Contact {
	return slices.Clone(d.entries)
}

// Search returns the first contact whose name matches keyword ignoring
// case, or whose phone number equals keyword.
func (d *Directory) Search(keyword string) (models.Contact, error) {
	for _, c := range d.entries {
		if c.MatchesKeyword(keyword) {
			return c, nil
		}
	}
	return models.Contact{}, apperr.ErrNotFound
}

// Remove deletes the first contact whose name matches ignoring case and
// shifts the following entries left by one. Later duplicates are kept.
func (d *Directory) Remove(name string) (models.Contact, error) {
	i := slices.IndexFunc(d.entries, func(c models.Contact) bool {
		return c.MatchesName(name)
	})
	if i < 0 {
		return models.Contact{}, apperr.ErrNotFound
	}
	removed := d.entries[i]
	d.entries = slices.Delete(d.entries, i, i+1)
	return removed, nil
}

// SortByName stably orders the contacts by name, byte-wise ascending.
func (d *Directory) SortByName() {
	slices.SortStableFunc(d.entries, func(a, b models.Contact) int {
		return strings.Compare(a.Name, b.Name)
	})
}

// SortByNumber stably orders the contacts by phone number. Numbers are
// compared as strings, so "10" sorts before "9".
func (d *Directory) SortByNumber() {
	slices.SortStableFunc(d.entries, func(a, b models.Contact) int {
		return strings.Compare(a.PhoneNumber, b.PhoneNumber)
	})
}

// Size returns the number of live contacts.
func (d *Directory) Size() int {
	return len(d.entries)
}

// Capacity returns the fixed maximum number of contacts.
func (d *Directory) Capacity() int {
	return d.capacity
}

// Clear removes every contact.
func (d *Directory) Clear() {
	clear(d.entries)
	d.entries = d.entries[:0]
}
