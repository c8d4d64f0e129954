// Package contactservice exposes a Directory to concurrent callers.
package contactservice

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/starford/rolodex/internal/directory"
	"github.com/starford/rolodex/internal/models"
)

// Change kinds reported to the ChangeFunc.
const (
	ChangeAdded   = "added"
	ChangeRemoved = "removed"
	ChangeSorted  = "sorted"
	ChangeCleared = "cleared"
)

// ChangeFunc is called after every successful mutation, outside the lock.
// contact is nil for changes that are not about a single entry.
type ChangeFunc func(kind string, contact *models.Contact, size int)

// SortKey selects the ordering used by Sort.
type SortKey string

const (
	SortByName   SortKey = "name"
	SortByNumber SortKey = "phone"
)

// Service serializes access to one Directory and reports changes.
type Service struct {
	mu       sync.Mutex
	dir      *directory.Directory
	onChange ChangeFunc
}

// NewService wraps dir. onChange may be nil.
func NewService(dir *directory.Directory, onChange ChangeFunc) *Service {
	return &Service{dir: dir, onChange: onChange}
}

// Add stores a single contact.
func (s *Service) Add(_ context.Context, name, phoneNumber, email string) (*models.Contact, error) {
	s.mu.Lock()
	if err := s.dir.Add(name, phoneNumber, email); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	size := s.dir.Size()
	s.mu.Unlock()

	c := &models.Contact{Name: name, PhoneNumber: phoneNumber, Email: email}
	s.notify(ChangeAdded, c, size)
	return c, nil
}

// AddAll stores every contact or none of them.
func (s *Service) AddAll(_ context.Context, contacts []models.Contact) error {
	s.mu.Lock()
	if err := s.dir.AddAll(contacts); err != nil {
		s.mu.Unlock()
		return err
	}
	size := s.dir.Size() - len(contacts)
	s.mu.Unlock()

	for _, c := range contacts {
		size++
		s.notify(ChangeAdded, &c, size)
	}
	return nil
}

// Display returns a restartable sequence over a snapshot of the contacts.
func (s *Service) Display(_ context.Context) (iter.Seq[models.Contact], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir.Display()
}

// List returns a copy of the contacts in storage order.
func (s *Service) List(_ context.Context) []models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir.Contacts()
}

// Search returns the first contact matching keyword by name or phone number.
func (s *Service) Search(_ context.Context, keyword string) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.dir.Search(keyword)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Remove deletes the first contact with the given name.
func (s *Service) Remove(_ context.Context, name string) (*models.Contact, error) {
	s.mu.Lock()
	c, err := s.dir.Remove(name)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	size := s.dir.Size()
	s.mu.Unlock()

	s.notify(ChangeRemoved, &c, size)
	return &c, nil
}

// Sort reorders the directory by key and returns the sorted contents.
// Unknown keys sort by name.
func (s *Service) Sort(_ context.Context, key SortKey) []models.Contact {
	s.mu.Lock()
	switch key {
	case SortByNumber:
		s.dir.SortByNumber()
	default:
		s.dir.SortByName()
	}
	sorted := s.dir.Contacts()
	s.mu.Unlock()

	s.notify(ChangeSorted, nil, len(sorted))
	return sorted
}

// Size returns the number of stored contacts.
func (s *Service) Size(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir.Size()
}

// Capacity returns the directory's fixed capacity.
func (s *Service) Capacity() int {
	// Capacity never changes after construction.
	return s.dir.Capacity()
}

// Clear removes every contact.
func (s *Service) Clear(_ context.Context) {
	s.mu.Lock()
	s.dir.Clear()
	s.mu.Unlock()

	s.notify(ChangeCleared, nil, 0)
}

// Reseed replaces the directory contents with contacts. If they do not
// fit, the current contents are kept and the AddAll error is returned.
func (s *Service) Reseed(_ context.Context, contacts []models.Contact) error {
	s.mu.Lock()
	next, err := directory.New(s.dir.Capacity())
	if err == nil {
		err = next.AddAll(contacts)
	}
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("reseed: %w", err)
	}
	s.dir = next
	s.mu.Unlock()

	s.notify(ChangeCleared, nil, 0)
	for i, c := range contacts {
		s.notify(ChangeAdded, &c, i+1)
	}
	return nil
}

func (s *Service) notify(kind string, c *models.Contact, size int) {
	if s.onChange != nil {
		s.onChange(kind, c, size)
	}
}
