// Package records defines the tabular record types exchanged with the portal
// and the CSV codec that reads and writes them.
package records

import "strings"

// Column names of the creation-batch input file, in file order.
var InputColumns = []string{
	"username",
	"fname_th",
	"lname_th",
	"fname_en",
	"lname_en",
	"tel",
	"mobile",
	"cid",
	"secondary_email",
	"note",
}

// Column names of the creation-result file. Downstream consumers depend on
// this order; it is not derived from struct field order.
var ResultColumns = []string{
	"username",
	"password",
	"fname_th",
	"lname_th",
	"fname_en",
	"lname_en",
	"tel",
	"mobile",
	"cid",
	"secondary_email",
	"note",
}

// Column names of the account listing file.
var AccountColumns = []string{
	"displayName",
	"fullName",
	"email",
	"created",
	"updated",
	"loggedIn",
}

// ProvisionInput is one account to create.
type ProvisionInput struct {
	Username       string
	FirstNameTH    string
	LastNameTH     string
	FirstNameEN    string
	LastNameEN     string
	Tel            string
	Mobile         string
	NationalID     string
	SecondaryEmail string
	Note           string
}

// DisplayName is the value the portal expects in its display-name field.
func (p ProvisionInput) DisplayName() string {
	return p.FirstNameTH + " " + p.LastNameTH
}

// ProvisionResult is a ProvisionInput that was created and given a password.
type ProvisionResult struct {
	ProvisionInput
	Password string
}

// ListedAccount is one row of the portal's user table.
type ListedAccount struct {
	DisplayName string
	FullName    string
	Email       string
	Created     string
	Updated     string
	LoggedIn    string
}

// NormalizeUsername returns the local part of s: surrounding whitespace is
// removed and everything from the first '@' onward is dropped.
// NormalizeUsername(NormalizeUsername(s)) == NormalizeUsername(s).
func NormalizeUsername(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '@'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// timestampDateWidth is the length of the date part of a portal timestamp
// cell, e.g. "2024-01-31" in "2024-01-3110:22:01".
const timestampDateWidth = 10

// SplitTimestamp inserts a single space between the date and time parts of a
// portal timestamp cell. Cells of timestampDateWidth runes or fewer are
// returned unchanged. No character is added other than the space.
func SplitTimestamp(s string) string {
	r := []rune(s)
	if len(r) <= timestampDateWidth {
		return s
	}
	return string(r[:timestampDateWidth]) + " " + string(r[timestampDateWidth:])
}
