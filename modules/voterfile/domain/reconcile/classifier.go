package reconcile

import (
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/aggregates/contact"
)

// ChangeSet lists the fields approved for one update. Every member is
// system-updatable; an empty set means the record is skipped, not updated.
type ChangeSet []contact.Field

func (c ChangeSet) Empty() bool { return len(c) == 0 }

func (c ChangeSet) Contains(f contact.Field) bool {
	for _, have := range c {
		if have == f {
			return true
		}
	}
	return false
}

// UserModifiedPredicate reports whether a field of an existing record carries
// a prior human edit that the import must not overwrite.
type UserModifiedPredicate func(existing contact.Contact, f contact.Field) bool

// LastWriterHeuristic approximates per-field provenance with the record's
// last writer. It cannot distinguish which field the human touched, so it
// can both under- and over-protect.
func LastWriterHeuristic(existing contact.Contact, _ contact.Field) bool {
	return existing.EditedByHuman()
}

type Classifier struct {
	overwriteUserData bool
	userModified      UserModifiedPredicate
}

func NewClassifier(overwriteUserData bool) *Classifier {
	return &Classifier{
		overwriteUserData: overwriteUserData,
		userModified:      LastWriterHeuristic,
	}
}

// WithPredicate swaps the user-modified predicate, for a provenance-tracking
// implementation or for tests.
func (c *Classifier) WithPredicate(p UserModifiedPredicate) *Classifier {
	c.userModified = p
	return c
}

// Classify compares an incoming record against its existing counterpart and
// returns the fields safe to write. Only system-updatable fields are ever
// considered; a sentinel-blank incoming value never clears existing data.
func (c *Classifier) Classify(incoming, existing contact.Contact) ChangeSet {
	var changes ChangeSet
	for _, f := range contact.DiffableFields() {
		in := incoming.FieldValue(f)
		if in == "" || in == existing.FieldValue(f) {
			continue
		}
		if c.userModified(existing, f) && !c.overwriteUserData {
			continue
		}
		changes = append(changes, f)
	}
	return changes
}
