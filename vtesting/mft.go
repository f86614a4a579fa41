package vtesting

import (
	"encoding/binary"
)

const (
	TestRecordSize = 1024

	mftAttributeOffset = 0x38

	ATTR_STANDARD_INFORMATION = 0x10
	ATTR_FILE_NAME            = 0x30

	NAME_TYPE_POSIX     = 0
	NAME_TYPE_WIN32     = 1
	NAME_TYPE_DOS       = 2
	NAME_TYPE_DOS_WIN32 = 3
)

type FileName struct {
	Name     string
	NameType uint8
	Parent   uint64
}

// MFTRecord describes a minimal fixed up FILE record.
type MFTRecord struct {
	Entry         uint32
	Sequence      uint16
	Allocated     bool
	Directory     bool
	BaseReference uint64

	// Filetimes of the $STANDARD_INFORMATION attribute. The
	// attribute is omitted when Created is 0.
	Created  uint64
	Modified uint64
	Accessed uint64

	FileNames []FileName
}

func residentAttribute(attr_type uint32, id uint16, content []byte) []byte {
	length := align8(24 + len(content))
	buf := make([]byte, length)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], attr_type)
	le.PutUint32(buf[4:8], uint32(length))
	buf[8] = 0 // Resident
	buf[9] = 0 // No name
	le.PutUint16(buf[10:12], 24)
	le.PutUint16(buf[14:16], id)
	le.PutUint32(buf[16:20], uint32(len(content)))
	le.PutUint16(buf[20:22], 24)
	copy(buf[24:], content)
	return buf
}

func BuildMFTRecord(r MFTRecord) []byte {
	buf := make([]byte, TestRecordSize)
	le := binary.LittleEndian

	copy(buf[0:4], "FILE")
	le.PutUint16(buf[4:6], 0x30)
	le.PutUint16(buf[6:8], 3)
	le.PutUint64(buf[8:16], 0x1000)
	le.PutUint16(buf[16:18], r.Sequence)
	le.PutUint16(buf[18:20], uint16(len(r.FileNames)))
	le.PutUint16(buf[20:22], mftAttributeOffset)

	flags := uint16(0)
	if r.Allocated {
		flags |= 1
	}
	if r.Directory {
		flags |= 2
	}
	le.PutUint16(buf[22:24], flags)
	le.PutUint32(buf[28:32], TestRecordSize)
	le.PutUint64(buf[32:40], r.BaseReference)
	le.PutUint32(buf[44:48], r.Entry)

	offset := mftAttributeOffset
	id := uint16(0)

	if r.Created != 0 {
		si := make([]byte, 72)
		le.PutUint64(si[0:8], r.Created)
		le.PutUint64(si[8:16], r.Modified)
		le.PutUint64(si[16:24], r.Modified)
		le.PutUint64(si[24:32], r.Accessed)
		attr := residentAttribute(ATTR_STANDARD_INFORMATION, id, si)
		copy(buf[offset:], attr)
		offset += len(attr)
		id++
	}

	for _, fn := range r.FileNames {
		name := encodeName(fn.Name)
		content := make([]byte, 66+len(name))
		le.PutUint64(content[0:8], fn.Parent)
		le.PutUint64(content[8:16], TestFiletime)
		le.PutUint64(content[16:24], TestFiletime)
		le.PutUint64(content[24:32], TestFiletime)
		le.PutUint64(content[32:40], TestFiletime)
		content[64] = uint8(len(name) / 2)
		content[65] = fn.NameType
		copy(content[66:], name)

		attr := residentAttribute(ATTR_FILE_NAME, id, content)
		copy(buf[offset:], attr)
		offset += len(attr)
		id++
	}

	// End of attributes marker.
	le.PutUint32(buf[offset:], 0xffffffff)
	offset += 8

	le.PutUint32(buf[24:28], uint32(offset))
	le.PutUint16(buf[40:42], id)
	return buf
}
