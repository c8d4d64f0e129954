// Package models defines the domain types for Rolodex.
package models

import "strings"

// Contact is a single directory entry. All fields are opaque text and a
// Contact is never modified after it has been stored.
type Contact struct {
	Name        string `json:"name" yaml:"name"`
	PhoneNumber string `json:"phone_number" yaml:"phone_number"`
	Email       string `json:"email" yaml:"email"`
}

// MatchesName reports whether name equals the contact's name, ignoring case.
func (c Contact) MatchesName(name string) bool {
	return strings.EqualFold(c.Name, name)
}

// MatchesKeyword reports whether keyword matches the name (ignoring case)
// or the phone number (exactly).
func (c Contact) MatchesKeyword(keyword string) bool {
	return c.MatchesName(keyword) || c.PhoneNumber == keyword
}
