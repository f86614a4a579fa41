package parser

import (
	"fmt"
)

const (
	// The root directory is always MFT entry 5.
	ROOT_ENTRY = 5

	entryMask = 0x0000ffffffffffff
)

// An EntryReference identifies an MFT entry together with its
// sequence number. The entry number is the low 48 bits of a file
// reference number and the sequence is the high 16 bits.
type EntryReference struct {
	Entry    uint64 `json:"entry"`
	Sequence uint16 `json:"sequence"`
}

func NewEntryReference(frn uint64) EntryReference {
	return EntryReference{
		Entry:    frn & entryMask,
		Sequence: uint16(frn >> 48),
	}
}

// Value packs the reference back into a 64 bit file reference number.
func (self EntryReference) Value() uint64 {
	return self.Entry&entryMask | uint64(self.Sequence)<<48
}

func (self EntryReference) IsRoot() bool {
	return self.Entry == ROOT_ENTRY
}

func (self EntryReference) String() string {
	return fmt.Sprintf("%d-%d", self.Entry, self.Sequence)
}
