package parser

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Velocidex/ordereddict"
)

// Parse USN records
// https://docs.microsoft.com/en-us/windows/win32/api/winioctl/ns-winioctl-usn_record_v2
// https://docs.microsoft.com/en-us/windows/win32/api/winioctl/ns-winioctl-usn_record_v3

const (
	USN_RECORD_V2_MIN_SIZE = 60
	USN_RECORD_V3_MIN_SIZE = 76

	// Records never exceed this size (255 UTF16 characters plus
	// the V3 header).
	MAX_USN_RECORD_SIZE = 1024

	MAX_USN_RECORD_SCAN_SIZE = 64 * 1024
)

type USNRecord struct {
	// Offset of the record within its buffer or stream.
	Offset int64

	RecordLength    uint32
	MajorVersion    uint16
	MinorVersion    uint16
	FileReference   EntryReference
	ParentReference EntryReference
	Usn             int64
	Timestamp       time.Time
	Reason          uint32
	SourceInfo      uint32
	SecurityId      uint32
	FileAttributes  uint32
	FileName        string

	// Filled in by the listener when path enumeration is enabled.
	FullPath string
}

func (self *USNRecord) IsDirectory() bool {
	return self.FileAttributes&FILE_ATTRIBUTE_DIRECTORY != 0
}

func (self *USNRecord) Reasons() []string {
	return ReasonNames(self.Reason)
}

func (self *USNRecord) ToDict() *ordereddict.Dict {
	result := ordereddict.NewDict().
		Set("usn", self.Usn).
		Set("timestamp", self.Timestamp).
		Set("major_version", self.MajorVersion).
		Set("minor_version", self.MinorVersion).
		Set("file_reference", self.FileReference).
		Set("parent_reference", self.ParentReference).
		Set("file_name", self.FileName).
		Set("reason", strings.Join(self.Reasons(), " | ")).
		Set("source_info", strings.Join(SourceInfoNames(self.SourceInfo), " | ")).
		Set("security_id", self.SecurityId).
		Set("file_attributes", strings.Join(
			FileAttributeNames(self.FileAttributes), " | "))

	if self.FullPath != "" {
		result.Set("full_path", self.FullPath)
	}
	return result
}

func (self *USNRecord) DebugString() string {
	result := fmt.Sprintf("[USN_RECORD_V%d] @ %#0x\n", self.MajorVersion, self.Offset)
	result += fmt.Sprintf("  RecordLength: %#0x\n", self.RecordLength)
	result += fmt.Sprintf("  FileReference: %v\n", self.FileReference)
	result += fmt.Sprintf("  ParentReference: %v\n", self.ParentReference)
	result += fmt.Sprintf("  Usn: %#0x\n", self.Usn)
	result += fmt.Sprintf("  TimeStamp: %v\n", self.Timestamp)
	result += fmt.Sprintf("  Reason: %v\n", strings.Join(self.Reasons(), ", "))
	result += fmt.Sprintf("  FileAttributes: %v\n",
		strings.Join(FileAttributeNames(self.FileAttributes), ", "))
	result += fmt.Sprintf("  Filename: %v\n", self.FileName)
	return result
}

// Decode a single record from the start of buf. The buffer must
// already be limited to the record length.
func decodeUSNRecord(buf []byte) (*USNRecord, error) {
	le := binary.LittleEndian

	result := &USNRecord{
		RecordLength: uint32(len(buf)),
		MajorVersion: le.Uint16(buf[4:6]),
		MinorVersion: le.Uint16(buf[6:8]),
	}

	var name_length, name_offset int

	switch result.MajorVersion {
	case 2:
		if len(buf) < USN_RECORD_V2_MIN_SIZE {
			return nil, fmt.Errorf("V2 record too short: %d", len(buf))
		}
		result.FileReference = NewEntryReference(le.Uint64(buf[8:16]))
		result.ParentReference = NewEntryReference(le.Uint64(buf[16:24]))
		result.Usn = int64(le.Uint64(buf[24:32]))
		result.Timestamp = NewWinFileTime(le.Uint64(buf[32:40])).Time
		result.Reason = le.Uint32(buf[40:44])
		result.SourceInfo = le.Uint32(buf[44:48])
		result.SecurityId = le.Uint32(buf[48:52])
		result.FileAttributes = le.Uint32(buf[52:56])
		name_length = int(le.Uint16(buf[56:58]))
		name_offset = int(le.Uint16(buf[58:60]))

	case 3:
		// 128 bit references: NTFS keeps the 64 bit reference in
		// the low 8 bytes.
		if len(buf) < USN_RECORD_V3_MIN_SIZE {
			return nil, fmt.Errorf("V3 record too short: %d", len(buf))
		}
		result.FileReference = NewEntryReference(le.Uint64(buf[8:16]))
		result.ParentReference = NewEntryReference(le.Uint64(buf[24:32]))
		result.Usn = int64(le.Uint64(buf[40:48]))
		result.Timestamp = NewWinFileTime(le.Uint64(buf[48:56])).Time
		result.Reason = le.Uint32(buf[56:60])
		result.SourceInfo = le.Uint32(buf[60:64])
		result.SecurityId = le.Uint32(buf[64:68])
		result.FileAttributes = le.Uint32(buf[68:72])
		name_length = int(le.Uint16(buf[72:74]))
		name_offset = int(le.Uint16(buf[74:76]))

	default:
		return nil, fmt.Errorf("Unsupported record version %d", result.MajorVersion)
	}

	if name_offset+name_length > len(buf) {
		return nil, fmt.Errorf("File name exceeds record: %d+%d > %d",
			name_offset, name_length, len(buf))
	}
	result.FileName = ParseUTF16String(buf[name_offset : name_offset+name_length])

	return result, nil
}

// USNRecordIterator walks the output of FSCTL_READ_USN_JOURNAL. The
// first 8 bytes of the buffer are the usn to resume reading from.
// The iterator is not restartable.
type USNRecordIterator struct {
	buf      []byte
	next_usn int64
	offset   int

	current *USNRecord
	err     error
}

func NewUSNRecordIterator(buf []byte) (*USNRecordIterator, error) {
	if len(buf) < 8 {
		return nil, &MalformedRecordBufferError{
			Offset: 0, Reason: "buffer shorter than the usn cursor"}
	}

	return &USNRecordIterator{
		buf:      buf,
		next_usn: int64(binary.LittleEndian.Uint64(buf[0:8])),
		offset:   8,
	}, nil
}

// NextUsn is where the next read should start.
func (self *USNRecordIterator) NextUsn() int64 {
	return self.next_usn
}

func (self *USNRecordIterator) setErr(err error) {
	self.err = err
	self.current = nil
	STATS.Inc_MalformedBuffer()
}

func (self *USNRecordIterator) Next() bool {
	for self.err == nil && self.offset < len(self.buf) {
		remaining := len(self.buf) - self.offset
		if remaining < 8 {
			self.setErr(&MalformedRecordBufferError{
				Offset: self.offset, Reason: "truncated record header"})
			return false
		}

		length := int(binary.LittleEndian.Uint32(self.buf[self.offset:]))
		if length == 0 {
			self.setErr(&MalformedRecordBufferError{
				Offset: self.offset, Reason: "zero record length"})
			return false
		}

		if length > remaining {
			self.setErr(&MalformedRecordBufferError{
				Offset: self.offset,
				Reason: fmt.Sprintf("record length %d exceeds buffer", length)})
			return false
		}

		offset := self.offset
		self.offset += length

		major := binary.LittleEndian.Uint16(self.buf[offset+4:])
		if major == 4 {
			// Range tracking records carry no name and are not
			// forwarded.
			STATS.Inc_USNRecordSkipped()
			continue
		}

		record, err := decodeUSNRecord(self.buf[offset : offset+length])
		if err != nil {
			self.setErr(&MalformedRecordBufferError{
				Offset: offset, Reason: err.Error()})
			return false
		}
		record.Offset = int64(offset)
		self.current = record
		STATS.Inc_USNRecord()
		return true
	}

	self.current = nil
	return false
}

func (self *USNRecordIterator) Record() *USNRecord {
	return self.current
}

func (self *USNRecordIterator) Err() error {
	return self.err
}

// Records collects all the remaining records.
func (self *USNRecordIterator) Records() ([]*USNRecord, error) {
	result := []*USNRecord{}
	for self.Next() {
		result = append(result, self.Record())
	}
	return result, self.Err()
}

// readUSNRecordAt tries to instantiate a record at the offset of a
// raw journal stream. Returns nil if the data there does not look
// like a record.
func readUSNRecordAt(reader io.ReaderAt, offset int64) *USNRecord {
	header := make([]byte, 8)
	_, err := reader.ReadAt(header, offset)
	if err != nil {
		return nil
	}

	length := int64(binary.LittleEndian.Uint32(header))

	// Record length should be reasonable and 64 bit aligned.
	if length < USN_RECORD_V2_MIN_SIZE || length > MAX_USN_RECORD_SIZE ||
		length%8 != 0 {
		return nil
	}

	buf := make([]byte, length)
	n, _ := reader.ReadAt(buf, offset)
	if int64(n) < length {
		return nil
	}

	record, err := decodeUSNRecord(buf)
	if err != nil || record.Usn <= 0 {
		return nil
	}
	record.Offset = offset
	return record
}

// nextUSNRecord finds the next record after the one at offset.
func nextUSNRecord(reader io.ReaderAt, offset, max_offset int64) *USNRecord {
	result := readUSNRecordAt(reader, offset)
	if result != nil {
		return result
	}

	// Sometimes there is a sequence of null bytes after a record
	// and before the next record. If the next record is not
	// immediately after the previous record we scan ahead a bit
	// to try to find it.
	for offset < max_offset {
		to_read := max_offset - offset
		data := make([]byte, CapInt64(to_read, MAX_USN_RECORD_SCAN_SIZE))

		n, err := reader.ReadAt(data, offset)
		if n == 0 {
			return nil
		}

		// scan the buffer for the first non zero byte.
		for i := 0; i < n; i++ {
			if data[i] != 0 {
				result := readUSNRecordAt(reader, offset+int64(i))
				if result != nil {
					return result
				}
			}
		}

		if err != nil {
			return nil
		}
		offset += int64(n)
	}

	return nil
}

// ParseUSNStream parses a raw $UsnJrnl:$J stream (for example one
// extracted from an image) starting at starting_offset. Records are
// sent on the returned channel until the stream is exhausted.
func ParseUSNStream(ctx context.Context, reader io.ReaderAt,
	size, starting_offset int64) chan *USNRecord {
	output := make(chan *USNRecord)

	go func() {
		defer close(output)

		count := 0
		defer func() { DebugPrint("ParseUSNStream: emitted %v records", count) }()

		for record := nextUSNRecord(reader, starting_offset, size); record != nil; record = nextUSNRecord(
			reader, record.Offset+int64(record.RecordLength), size) {

			select {
			case <-ctx.Done():
				return

			case output <- record:
				count++
			}
		}
	}()

	return output
}
