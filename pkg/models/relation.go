package models

import "fmt"

// Relation is a stored link row. A nil CustomerID means the document was
// looked at and explicitly left without a customer.
type Relation struct {
	DocumentID string
	CustomerID *string
}

// LinkState distinguishes "no row", "row without customer" and "row with customer".
type LinkState int

const (
	Unlinked LinkState = iota
	Unresolved
	Linked
)

func (s LinkState) String() string {
	switch s {
	case Unlinked:
		return "unlinked"
	case Unresolved:
		return "unresolved"
	case Linked:
		return "linked"
	}
	return fmt.Sprintf("LinkState(%d)", int(s))
}

// Link is the association of one document. The zero value is Unlinked.
type Link struct {
	State      LinkState
	CustomerID string // Set only when State == Linked
}

// LinkedTo builds a Linked link.
func LinkedTo(customerID string) Link {
	return Link{State: Linked, CustomerID: customerID}
}

// IsLinkedTo reports whether the document is associated with customerID.
func (l Link) IsLinkedTo(customerID string) bool {
	return l.State == Linked && l.CustomerID == customerID
}

// LinkOf converts a stored relation row into its tagged form.
func LinkOf(r Relation) Link {
	if r.CustomerID == nil || *r.CustomerID == "" {
		return Link{State: Unresolved}
	}
	return LinkedTo(*r.CustomerID)
}

// Links indexes relation rows by document id. Documents missing from the
// result are Unlinked.
type Links map[string]Link

// NewLinks builds a Links index from stored relation rows.
func NewLinks(rows []Relation) Links {
	links := make(Links, len(rows))
	for _, r := range rows {
		links[r.DocumentID] = LinkOf(r)
	}
	return links
}

// Of returns the link for documentID, Unlinked when no row exists.
func (l Links) Of(documentID string) Link {
	return l[documentID]
}
