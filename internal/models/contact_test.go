package models

import "testing"

func TestContact_MatchesName(t *testing.T) {
	c := Contact{Name: "Amy", PhoneNumber: "111", Email: "a@x"}
	for _, name := range []string{"Amy", "amy", "AMY", "aMy"} {
		if !c.MatchesName(name) {
			t.Errorf("MatchesName(%q) = false, want true", name)
		}
	}
	if c.MatchesName("Am") {
		t.Error("prefix should not match")
	}
	if c.MatchesName(" Amy") {
		t.Error("leading space should not match")
	}
}

func TestContact_MatchesKeyword(t *testing.T) {
	c := Contact{Name: "Amy", PhoneNumber: "555-0101", Email: "a@x"}
	if !c.MatchesKeyword("AMY") {
		t.Error("name should match case-insensitively")
	}
	if !c.MatchesKeyword("555-0101") {
		t.Error("phone should match exactly")
	}
	if c.MatchesKeyword("5550101") {
		t.Error("phone match must be exact")
	}
	if c.MatchesKeyword("a@x") {
		t.Error("email is not a search key")
	}
}
