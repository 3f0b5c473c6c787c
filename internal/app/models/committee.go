package models

import (
	"strings"
	"unicode"
)

// CommitteeRole is the capacity in which a faculty member sits on a defense
type CommitteeRole string

const (
	RoleAdviserSeat     CommitteeRole = "adviser"
	RoleChairpersonSeat CommitteeRole = "chairperson"
	RolePanelistSeat    CommitteeRole = "panelist"
)

// MemberRef points at a faculty directory entry. FacultyID is the canonical
// identifier resolved at assignment time; Name is kept for display.
type MemberRef struct {
	FacultyID int64  `json:"facultyId,omitempty" example:"7"`
	Name      string `json:"name" example:"Dr. Jose Rizal"`
}

// IsZero reports whether the seat is empty.
func (m MemberRef) IsZero() bool {
	return m.FacultyID == 0 && strings.TrimSpace(m.Name) == ""
}

// SamePerson reports whether m and o name the same person: a shared directory
// id or the same normalized name. Name-only references are never resolved
// later, so the name has to match on its own.
func (m MemberRef) SamePerson(o MemberRef) bool {
	if m.IsZero() || o.IsZero() {
		return false
	}
	if m.FacultyID > 0 && m.FacultyID == o.FacultyID {
		return true
	}
	name := NormalizeName(m.Name)
	return name != "" && name == NormalizeName(o.Name)
}

// Committee holds the adviser, chairperson and up to four panelists of a defense
type Committee struct {
	Adviser     MemberRef `json:"adviser"`
	Chairperson MemberRef `json:"chairperson"`
	Panelist1   MemberRef `json:"panelist1"`
	Panelist2   MemberRef `json:"panelist2"`
	Panelist3   MemberRef `json:"panelist3"`
	Panelist4   MemberRef `json:"panelist4"`
}

// Seat is one occupied position on a committee
type Seat struct {
	Role   CommitteeRole `json:"role"`
	Slot   int           `json:"slot"`
	Member MemberRef     `json:"member"`
}

// Seats returns the occupied seats in a fixed order: adviser, chairperson, panelist1..4.
func (c Committee) Seats() []Seat {
	all := []Seat{
		{Role: RoleAdviserSeat, Slot: 0, Member: c.Adviser},
		{Role: RoleChairpersonSeat, Slot: 0, Member: c.Chairperson},
		{Role: RolePanelistSeat, Slot: 1, Member: c.Panelist1},
		{Role: RolePanelistSeat, Slot: 2, Member: c.Panelist2},
		{Role: RolePanelistSeat, Slot: 3, Member: c.Panelist3},
		{Role: RolePanelistSeat, Slot: 4, Member: c.Panelist4},
	}
	seats := all[:0]
	for _, s := range all {
		if !s.Member.IsZero() {
			seats = append(seats, s)
		}
	}
	return seats
}

// Panelists returns panelist1..4 in slot order, including empty slots.
func (c Committee) Panelists() [4]MemberRef {
	return [4]MemberRef{c.Panelist1, c.Panelist2, c.Panelist3, c.Panelist4}
}

// NormalizeName folds case, trims and collapses interior whitespace.
func NormalizeName(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
