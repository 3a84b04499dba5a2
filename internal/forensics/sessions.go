package forensics

import (
	"slices"
)

// SessionSet is a set of session identifiers.
type SessionSet map[string]struct{}

// Add inserts id into the set.
func (s SessionSet) Add(id string) { s[id] = struct{}{} }

// Contains reports whether id is in the set.
func (s SessionSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s SessionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// sessionStack holds the open sessions of one user, most recent last.
type sessionStack []string

func (s *sessionStack) push(id string) { *s = append(*s, id) }

func (s *sessionStack) pop() {
	*s = (*s)[:len(*s)-1]
}

func (s sessionStack) top() (string, bool) {
	if len(s) == 0 {
		return "", false
	}
	return s[len(s)-1], true
}

// FindInvalidSessions flags sessions with broken LOGIN/LOGOUT nesting.
//
// A session is invalid when a LOGIN for the same user arrives while it is
// still open, when its LOGOUT does not close the user's most recent open
// session, or when it is still open at the end of the data. Records missing a
// user, session or action are ignored.
func FindInvalidSessions(records []Record) SessionSet {
	invalid := make(SessionSet)
	stacks := make(map[string]*sessionStack)

	for _, r := range Chronological(records) {
		if r.UserID == "" || r.SessionID == "" || r.ActionType == "" {
			continue
		}

		stack, ok := stacks[r.UserID]
		if !ok {
			stack = &sessionStack{}
			stacks[r.UserID] = stack
		}

		switch r.ActionType {
		case ActionLogin:
			if open, ok := stack.top(); ok {
				invalid.Add(open)
			}
			stack.push(r.SessionID)
		case ActionLogout:
			if open, ok := stack.top(); !ok || open != r.SessionID {
				invalid.Add(r.SessionID)
				continue
			}
			stack.pop()
		}
	}

	// Never closed.
	for _, stack := range stacks {
		for _, id := range *stack {
			invalid.Add(id)
		}
	}
	return invalid
}
