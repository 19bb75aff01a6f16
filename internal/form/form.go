// Package form holds the state and validation rules for the user
// create/edit form. Validation is pure: it never touches the network and
// evaluates every rule independently, so all failing fields report at once.
package form

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/chupakbra/authelia-admin-cli/internal/client"
)

// Mode selects which rules apply. Create validates and submits the user
// ID; edit treats it as immutable and allows a blank password to mean
// "no change".
type Mode int

const (
	Create Mode = iota
	Edit
)

// State is the transient form state, one string per field as typed.
// It is discarded on save or cancel.
type State struct {
	UserID          string
	DisplayName     string
	Email           string
	Password        string
	ConfirmPassword string
	Disabled        bool
	Groups          []string
}

// Errors maps field names to human-readable messages. A field that passed
// validation never has a key. The "submit" key carries whole-form or
// server-side failures.
type Errors map[string]string

var (
	userIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	// Deliberately loose: local@domain.tld shape, no RFC 5322 ambitions.
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Validate checks s against the rules for mode and returns the failing
// fields.
func Validate(s State, mode Mode) Errors {
	errs := Errors{}

	if mode == Create {
		if s.UserID == "" {
			errs["user_id"] = "Username is required"
		} else if !userIDRe.MatchString(s.UserID) {
			errs["user_id"] = "Username must be 1-64 characters (letters, numbers, underscore, hyphen)"
		}
	}

	displayName := strings.TrimSpace(s.DisplayName)
	if displayName == "" {
		errs["displayname"] = "Display name is required"
	} else if utf8.RuneCountInString(displayName) > 256 {
		errs["displayname"] = "Display name must be 256 characters or less"
	}

	email := strings.TrimSpace(s.Email)
	if email == "" {
		errs["email"] = "Email is required"
	} else if !emailRe.MatchString(email) {
		errs["email"] = "Invalid email format"
	}

	if mode == Create && s.Password == "" {
		errs["password"] = "Password is required"
	}

	if s.Password != "" && s.Password != s.ConfirmPassword {
		errs["confirmPassword"] = "Passwords do not match"
	}

	return errs
}

// HasErrors reports whether any field failed validation.
func HasErrors(e Errors) bool {
	return len(e) > 0
}

// StateFromUser pre-populates an edit-mode form from a fetched user.
// Password fields start blank; groups are copied so form edits never
// reach into the list's collection.
func StateFromUser(u client.User) State {
	return State{
		UserID:      u.UserID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Disabled:    u.Disabled,
		Groups:      append([]string(nil), u.Groups...),
	}
}

// Input builds the write payload for a validated form. In edit mode a
// blank password is omitted entirely and the user ID is never sent.
func (s State) Input(mode Mode) client.UserInput {
	groups := append([]string{}, s.Groups...)
	in := client.UserInput{
		DisplayName: ptr(strings.TrimSpace(s.DisplayName)),
		Email:       ptr(strings.TrimSpace(s.Email)),
		Disabled:    ptr(s.Disabled),
		Groups:      &groups,
	}
	if mode == Create {
		in.UserID = s.UserID
	}
	if s.Password != "" {
		in.Password = ptr(s.Password)
	}
	return in
}

func ptr[T any](v T) *T { return &v }
