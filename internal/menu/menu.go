// Package menu implements the numbered, line-oriented text interface
// over a contact directory.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strconv"
	"strings"

	"github.com/starford/rolodex/internal/apperr"
	"github.com/starford/rolodex/internal/contactservice"
	"github.com/starford/rolodex/internal/models"
)

// Book is the set of directory operations the menu drives.
type Book interface {
	Add(ctx context.Context, name, phoneNumber, email string) (*models.Contact, error)
	AddAll(ctx context.Context, contacts []models.Contact) error
	Display(ctx context.Context) (iter.Seq[models.Contact], error)
	Search(ctx context.Context, keyword string) (*models.Contact, error)
	Remove(ctx context.Context, name string) (*models.Contact, error)
	Sort(ctx context.Context, key contactservice.SortKey) []models.Contact
	Size(ctx context.Context) int
	Clear(ctx context.Context)
}

var _ Book = (*contactservice.Service)(nil)

const (
	choiceAdd = iota + 1
	choiceAddMany
	choiceDisplay
	choiceSearch
	choiceRemove
	choiceSortName
	choiceSortNumber
	choiceSize
	choiceClear
	choiceExit
)

const menuText = `Address Book Menu:
1. Add a new contact
2. Add multiple contacts
3. Display all contacts
4. Search for a contact by name or phone number
5. Remove a contact by name
6. Sort contacts by name
7. Sort contacts by phone number
8. Get size of address book
9. Clear address book
10. Exit
`

const invalidChoice = "Invalid choice. Please enter a number between 1 and 10."

// errExit ends the loop. It is also returned when input runs out.
var errExit = errors.New("exit")

// Menu reads choices and fields from in and writes results to out.
type Menu struct {
	book   Book
	in     *bufio.Reader
	out    io.Writer
	logger *slog.Logger
}

// New creates a Menu. logger may be nil.
func New(book Book, in io.Reader, out io.Writer, logger *slog.Logger) *Menu {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Menu{
		book:   book,
		in:     bufio.NewReader(in),
		out:    out,
		logger: logger,
	}
}

// Run shows the menu until the user exits, input ends, or ctx is done.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.print(menuText)
		m.printf("Enter your choice: ")
		line, err := m.readLine()
		if err != nil {
			return m.finish(err)
		}

		choice, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr != nil || choice < choiceAdd || choice > choiceExit {
			m.logger.Debug("menu: invalid choice", slog.String("input", line))
			m.println(invalidChoice)
			m.println("")
			continue
		}

		m.logger.Debug("menu: dispatch", slog.Int("choice", choice))
		if err := m.dispatch(ctx, choice); err != nil {
			return m.finish(err)
		}
		m.println("")
	}
}

func (m *Menu) finish(err error) error {
	if errors.Is(err, errExit) {
		m.println("Exiting address book. Goodbye!")
		return nil
	}
	return err
}

func (m *Menu) dispatch(ctx context.Context, choice int) error {
	switch choice {
	case choiceAdd:
		c, err := m.readContact()
		if err != nil {
			return err
		}
		m.reportAdd(ctx, c)
	case choiceAddMany:
		return m.addMany(ctx)
	case choiceDisplay:
		m.display(ctx)
	case choiceSearch:
		m.println("Enter name or phone number to search: ")
		keyword, err := m.readLine()
		if err != nil {
			return err
		}
		c, err := m.book.Search(ctx, keyword)
		if err != nil {
			m.reportErr(err)
			return nil
		}
		m.println("Contact found:")
		m.card(*c)
	case choiceRemove:
		m.println("Enter name to remove: ")
		name, err := m.readLine()
		if err != nil {
			return err
		}
		if _, err := m.book.Remove(ctx, name); err != nil {
			m.reportErr(err)
			return nil
		}
		m.println("Contact removed successfully.")
	case choiceSortName:
		m.book.Sort(ctx, contactservice.SortByName)
		m.println("Contacts sorted by name.")
	case choiceSortNumber:
		m.book.Sort(ctx, contactservice.SortByNumber)
		m.println("Contacts sorted by phone number.")
	case choiceSize:
		m.printf("Current size of address book: %d\n", m.book.Size(ctx))
	case choiceClear:
		m.book.Clear(ctx)
		m.println("Address book cleared.")
	case choiceExit:
		return errExit
	}
	return nil
}

func (m *Menu) reportAdd(ctx context.Context, c models.Contact) {
	if _, err := m.book.Add(ctx, c.Name, c.PhoneNumber, c.Email); err != nil {
		m.reportErr(err)
		return
	}
	m.println("Contact added successfully!")
}

func (m *Menu) addMany(ctx context.Context) error {
	m.println("Enter number of contacts to add: ")
	line, err := m.readLine()
	if err != nil {
		return err
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(line))
	if convErr != nil || n < 0 {
		m.println(invalidChoice)
		return nil
	}

	// n is user input; the batch grows with what is actually read.
	var batch []models.Contact
	for i := range n {
		m.printf("Contact %d:\n", i+1)
		c, err := m.readContact()
		if err != nil {
			return err
		}
		batch = append(batch, c)
	}

	if err := m.book.AddAll(ctx, batch); err != nil {
		m.reportErr(err)
		return nil
	}
	m.println("Contacts added successfully!")
	return nil
}

func (m *Menu) display(ctx context.Context) {
	contacts, err := m.book.Display(ctx)
	if err != nil {
		m.reportErr(err)
		return
	}
	m.println("Listing all contacts:")
	for c := range contacts {
		m.card(c)
	}
}

// readContact prompts for name, phone number, and email in that order.
func (m *Menu) readContact() (models.Contact, error) {
	var c models.Contact
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Enter name: ", &c.Name},
		{"Enter phone number: ", &c.PhoneNumber},
		{"Enter email: ", &c.Email},
	}
	for _, f := range fields {
		m.println(f.prompt)
		v, err := m.readLine()
		if err != nil {
			return models.Contact{}, err
		}
		*f.dst = v
	}
	return c, nil
}

// reportErr renders an expected directory outcome.
func (m *Menu) reportErr(err error) {
	switch {
	case errors.Is(err, apperr.ErrCapacityExceeded):
		m.println("Address book is full. Cannot add more contacts.")
	case errors.Is(err, apperr.ErrInsufficientSpace):
		m.println("Not enough space to add all contacts.")
	case errors.Is(err, apperr.ErrNotFound):
		m.println("Contact not found.")
	case errors.Is(err, apperr.ErrEmpty):
		m.println("Address book is empty.")
	default:
		m.logger.Error("menu: operation failed", slog.String("error", err.Error()))
		m.printf("Error: %v\n", err)
	}
}

func (m *Menu) card(c models.Contact) {
	m.printf("Name: %s\nPhone Number: %s\nEmail: %s\n--------------------\n", c.Name, c.PhoneNumber, c.Email)
}

// readLine returns the next input line without its terminator. Lines have
// no length limit. End of input is reported as errExit.
func (m *Menu) readLine() (string, error) {
	line, err := m.in.ReadString('\n')
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		if line == "" {
			return "", errExit
		}
	default:
		return "", fmt.Errorf("menu: read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (m *Menu) print(s string)                 { _, _ = io.WriteString(m.out, s) }
func (m *Menu) println(s string)               { _, _ = fmt.Fprintln(m.out, s) }
func (m *Menu) printf(format string, a ...any) { _, _ = fmt.Fprintf(m.out, format, a...) }
