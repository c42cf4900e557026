// Package access defines the abstraction of the identities that interact with
// the ledger.
package access

import (
	"encoding"
	"strings"
)

// Identity is an abstraction to uniquely identify a signer. Its text form is
// used to address its account on the ledger.
type Identity interface {
	encoding.TextMarshaler

	// Equal returns true if the other identity is the same.
	Equal(other interface{}) bool
}

// Compile returns a compacted rule from the string segments.
func Compile(segments ...string) string {
	return strings.Join(segments, ":")
}
