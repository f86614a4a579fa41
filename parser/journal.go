package parser

import (
	"encoding/binary"
	"fmt"
)

// Parse the USN journal control structures.
// https://learn.microsoft.com/en-us/windows/win32/api/winioctl/ns-winioctl-usn_journal_data_v2

const (
	USN_JOURNAL_DATA_V0_SIZE = 56
	USN_JOURNAL_DATA_V1_SIZE = 60
	USN_JOURNAL_DATA_V2_SIZE = 80

	READ_USN_JOURNAL_DATA_V0_SIZE = 40

	// The V1 structure is 44 bytes of fields padded to the 8 byte
	// alignment of the C struct.
	READ_USN_JOURNAL_DATA_V1_SIZE = 48

	DEFAULT_REASON_MASK = 0xffffffff
)

type JournalVersion int

const (
	JournalV0 JournalVersion = 0
	JournalV1 JournalVersion = 1
	JournalV2 JournalVersion = 2
)

func (self JournalVersion) String() string {
	return fmt.Sprintf("V%d", int(self))
}

// JournalMetadata describes the change journal of a volume. Fields
// not present in the decoded version are left as zero.
type JournalMetadata struct {
	Version                     JournalVersion
	UsnJournalID                uint64
	FirstUsn                    int64
	NextUsn                     int64
	LowestValidUsn              int64
	MaxUsn                      int64
	MaximumSize                 uint64
	AllocationDelta             uint64
	MinSupportedMajorVersion    uint16
	MaxSupportedMajorVersion    uint16
	Flags                       uint32
	RangeTrackChunkSize         uint64
	RangeTrackFileSizeThreshold int64
}

// DecodeJournalMetadata decodes the output of
// FSCTL_QUERY_USN_JOURNAL. The version is determined by the number
// of bytes the call returned.
func DecodeJournalMetadata(buf []byte) (*JournalMetadata, error) {
	result := &JournalMetadata{}

	switch len(buf) {
	case USN_JOURNAL_DATA_V0_SIZE:
		result.Version = JournalV0
	case USN_JOURNAL_DATA_V1_SIZE:
		result.Version = JournalV1
	case USN_JOURNAL_DATA_V2_SIZE:
		result.Version = JournalV2
	default:
		return nil, &InvalidJournalDataError{Size: len(buf)}
	}

	le := binary.LittleEndian
	result.UsnJournalID = le.Uint64(buf[0:8])
	result.FirstUsn = int64(le.Uint64(buf[8:16]))
	result.NextUsn = int64(le.Uint64(buf[16:24]))
	result.LowestValidUsn = int64(le.Uint64(buf[24:32]))
	result.MaxUsn = int64(le.Uint64(buf[32:40]))
	result.MaximumSize = le.Uint64(buf[40:48])
	result.AllocationDelta = le.Uint64(buf[48:56])

	if result.Version >= JournalV1 {
		result.MinSupportedMajorVersion = le.Uint16(buf[56:58])
		result.MaxSupportedMajorVersion = le.Uint16(buf[58:60])
	}

	if result.Version >= JournalV2 {
		result.Flags = le.Uint32(buf[60:64])
		result.RangeTrackChunkSize = le.Uint64(buf[64:72])
		result.RangeTrackFileSizeThreshold = int64(le.Uint64(buf[72:80]))
	}

	return result, nil
}

func (self *JournalMetadata) DebugString() string {
	result := fmt.Sprintf("[USN_JOURNAL_DATA_%v]\n", self.Version)
	result += fmt.Sprintf("  UsnJournalID: %#0x\n", self.UsnJournalID)
	result += fmt.Sprintf("  FirstUsn: %#0x\n", self.FirstUsn)
	result += fmt.Sprintf("  NextUsn: %#0x\n", self.NextUsn)
	result += fmt.Sprintf("  LowestValidUsn: %#0x\n", self.LowestValidUsn)
	result += fmt.Sprintf("  MaxUsn: %#0x\n", self.MaxUsn)
	result += fmt.Sprintf("  MaximumSize: %#0x\n", self.MaximumSize)
	result += fmt.Sprintf("  AllocationDelta: %#0x\n", self.AllocationDelta)
	if self.Version >= JournalV1 {
		result += fmt.Sprintf("  MinSupportedMajorVersion: %v\n",
			self.MinSupportedMajorVersion)
		result += fmt.Sprintf("  MaxSupportedMajorVersion: %v\n",
			self.MaxSupportedMajorVersion)
	}
	if self.Version >= JournalV2 {
		result += fmt.Sprintf("  Flags: %#0x\n", self.Flags)
		result += fmt.Sprintf("  RangeTrackChunkSize: %#0x\n",
			self.RangeTrackChunkSize)
		result += fmt.Sprintf("  RangeTrackFileSizeThreshold: %#0x\n",
			self.RangeTrackFileSizeThreshold)
	}
	return result
}

// ReadRequest is the input of FSCTL_READ_USN_JOURNAL. Only V0 and
// V1 exist; V2 journals are read with a V1 request.
type ReadRequest struct {
	Version           JournalVersion
	StartUsn          int64
	ReasonMask        uint32
	ReturnOnlyOnClose uint32
	Timeout           uint64
	BytesToWaitFor    uint64
	UsnJournalID      uint64
	MinMajorVersion   uint16
	MaxMajorVersion   uint16
}

// NewReadRequest builds a request from the journal metadata. The
// start usn is the journal's first usn; callers override it with
// WithStartUsn.
func NewReadRequest(meta *JournalMetadata) *ReadRequest {
	result := &ReadRequest{
		Version:      JournalV0,
		StartUsn:     meta.FirstUsn,
		ReasonMask:   DEFAULT_REASON_MASK,
		UsnJournalID: meta.UsnJournalID,
	}

	if meta.Version >= JournalV1 {
		result.Version = JournalV1
		result.MinMajorVersion = meta.MinSupportedMajorVersion
		result.MaxMajorVersion = meta.MaxSupportedMajorVersion
	}

	return result
}

func (self *ReadRequest) WithStartUsn(usn int64) *ReadRequest {
	self.StartUsn = usn
	return self
}

func (self *ReadRequest) WithReasonMask(mask uint32) *ReadRequest {
	self.ReasonMask = mask
	return self
}

func (self *ReadRequest) Size() int {
	if self.Version == JournalV0 {
		return READ_USN_JOURNAL_DATA_V0_SIZE
	}
	return READ_USN_JOURNAL_DATA_V1_SIZE
}

// Encode serializes the request into the layout the device expects.
func (self *ReadRequest) Encode() []byte {
	buf := make([]byte, self.Size())

	le := binary.LittleEndian
	le.PutUint64(buf[0:8], uint64(self.StartUsn))
	le.PutUint32(buf[8:12], self.ReasonMask)
	le.PutUint32(buf[12:16], self.ReturnOnlyOnClose)
	le.PutUint64(buf[16:24], self.Timeout)
	le.PutUint64(buf[24:32], self.BytesToWaitFor)
	le.PutUint64(buf[32:40], self.UsnJournalID)

	if self.Version != JournalV0 {
		le.PutUint16(buf[40:42], self.MinMajorVersion)
		le.PutUint16(buf[42:44], self.MaxMajorVersion)
	}

	return buf
}
