package domain

import "strings"

// Address is a ledger account or contract address in 0x-prefixed hex form.
// The zero value means "not assigned yet" (for example an event record whose
// creating transaction has not confirmed).
type Address string

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ""
}

// Valid reports whether the address looks like a 20-byte hex address. The
// ledger is the final authority; this only catches obviously malformed input
// before a network round trip.
func (a Address) Valid() bool {
	s := string(a)
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// TxHandle identifies a submitted ledger transaction. It exists as soon as
// the transaction is accepted by a node, before (and regardless of) inclusion.
type TxHandle string

// IsZero reports whether the handle is unset.
func (h TxHandle) IsZero() bool {
	return h == ""
}
