// Builders for the binary structures the volume device returns. Tests
// use these to feed the parsers and fake devices.

package vtesting

import (
	"encoding/binary"
	"unicode/utf16"

	"www.velocidex.com/golang/ntfsmon/parser"
)

// 2020-01-01T00:00:00Z as a windows filetime.
const TestFiletime = 132223104000000000

func FRN(entry uint64, sequence uint16) uint64 {
	return parser.EntryReference{Entry: entry, Sequence: sequence}.Value()
}

type USNRecord struct {
	// 2 or 3. Zero means 2.
	MajorVersion    uint16
	FileReference   uint64
	ParentReference uint64
	Usn             int64
	Timestamp       uint64
	Reason          uint32
	SourceInfo      uint32
	SecurityId      uint32
	FileAttributes  uint32
	Name            string
}

func encodeName(name string) []byte {
	encoded := utf16.Encode([]rune(name))
	result := make([]byte, len(encoded)*2)
	for idx, c := range encoded {
		binary.LittleEndian.PutUint16(result[idx*2:], c)
	}
	return result
}

func align8(n int) int {
	return (n + 7) &^ 7
}

// BuildUSNRecord lays out a record padded to 8 bytes the way the
// journal stores it.
func BuildUSNRecord(r USNRecord) []byte {
	le := binary.LittleEndian
	name := encodeName(r.Name)
	timestamp := r.Timestamp
	if timestamp == 0 {
		timestamp = TestFiletime
	}

	if r.MajorVersion == 3 {
		length := align8(parser.USN_RECORD_V3_MIN_SIZE + len(name))
		buf := make([]byte, length)
		le.PutUint32(buf[0:4], uint32(length))
		le.PutUint16(buf[4:6], 3)
		le.PutUint64(buf[8:16], r.FileReference)
		le.PutUint64(buf[24:32], r.ParentReference)
		le.PutUint64(buf[40:48], uint64(r.Usn))
		le.PutUint64(buf[48:56], timestamp)
		le.PutUint32(buf[56:60], r.Reason)
		le.PutUint32(buf[60:64], r.SourceInfo)
		le.PutUint32(buf[64:68], r.SecurityId)
		le.PutUint32(buf[68:72], r.FileAttributes)
		le.PutUint16(buf[72:74], uint16(len(name)))
		le.PutUint16(buf[74:76], parser.USN_RECORD_V3_MIN_SIZE)
		copy(buf[parser.USN_RECORD_V3_MIN_SIZE:], name)
		return buf
	}

	length := align8(parser.USN_RECORD_V2_MIN_SIZE + len(name))
	buf := make([]byte, length)
	le.PutUint32(buf[0:4], uint32(length))
	le.PutUint16(buf[4:6], 2)
	le.PutUint64(buf[8:16], r.FileReference)
	le.PutUint64(buf[16:24], r.ParentReference)
	le.PutUint64(buf[24:32], uint64(r.Usn))
	le.PutUint64(buf[32:40], timestamp)
	le.PutUint32(buf[40:44], r.Reason)
	le.PutUint32(buf[44:48], r.SourceInfo)
	le.PutUint32(buf[48:52], r.SecurityId)
	le.PutUint32(buf[52:56], r.FileAttributes)
	le.PutUint16(buf[56:58], uint16(len(name)))
	le.PutUint16(buf[58:60], parser.USN_RECORD_V2_MIN_SIZE)
	copy(buf[parser.USN_RECORD_V2_MIN_SIZE:], name)
	return buf
}

// BuildRangeTrackRecord builds a V4 record, which carries no name.
func BuildRangeTrackRecord(file_reference uint64, usn int64) []byte {
	buf := make([]byte, 80)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], 80)
	le.PutUint16(buf[4:6], 4)
	le.PutUint64(buf[8:16], file_reference)
	le.PutUint64(buf[40:48], uint64(usn))
	return buf
}

// BuildReadOutput prefixes the records with the next usn cursor, as
// FSCTL_READ_USN_JOURNAL returns them.
func BuildReadOutput(next_usn int64, records ...[]byte) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(next_usn))
	for _, r := range records {
		buf = append(buf, r...)
	}
	return buf
}

// EncodeJournalData produces a USN_JOURNAL_DATA of the given size
// (56, 60 or 80 bytes).
func EncodeJournalData(meta *parser.JournalMetadata, size int) []byte {
	buf := make([]byte, size)
	le := binary.LittleEndian
	le.PutUint64(buf[0:8], meta.UsnJournalID)
	le.PutUint64(buf[8:16], uint64(meta.FirstUsn))
	le.PutUint64(buf[16:24], uint64(meta.NextUsn))
	le.PutUint64(buf[24:32], uint64(meta.LowestValidUsn))
	le.PutUint64(buf[32:40], uint64(meta.MaxUsn))
	le.PutUint64(buf[40:48], meta.MaximumSize)
	le.PutUint64(buf[48:56], meta.AllocationDelta)
	if size >= parser.USN_JOURNAL_DATA_V1_SIZE {
		le.PutUint16(buf[56:58], meta.MinSupportedMajorVersion)
		le.PutUint16(buf[58:60], meta.MaxSupportedMajorVersion)
	}
	if size >= parser.USN_JOURNAL_DATA_V2_SIZE {
		le.PutUint32(buf[60:64], meta.Flags)
		le.PutUint64(buf[64:72], meta.RangeTrackChunkSize)
		le.PutUint64(buf[72:80], uint64(meta.RangeTrackFileSizeThreshold))
	}
	return buf
}

// EncodeVolumeGeometry produces a 128 byte NTFS_VOLUME_DATA_BUFFER
// followed by the extended volume data.
func EncodeVolumeGeometry(g *parser.VolumeGeometry) []byte {
	buf := make([]byte, 128)
	le := binary.LittleEndian
	le.PutUint64(buf[0:8], g.VolumeSerialNumber)
	le.PutUint64(buf[8:16], uint64(g.NumberSectors))
	le.PutUint64(buf[16:24], uint64(g.TotalClusters))
	le.PutUint64(buf[24:32], uint64(g.FreeClusters))
	le.PutUint64(buf[32:40], uint64(g.TotalReserved))
	le.PutUint32(buf[40:44], g.BytesPerSector)
	le.PutUint32(buf[44:48], g.BytesPerCluster)
	le.PutUint32(buf[48:52], g.BytesPerFileRecordSegment)
	le.PutUint32(buf[52:56], g.ClustersPerFileRecordSegment)
	le.PutUint64(buf[56:64], uint64(g.MftValidDataLength))
	le.PutUint64(buf[64:72], uint64(g.MftStartLcn))
	le.PutUint64(buf[72:80], uint64(g.Mft2StartLcn))
	le.PutUint64(buf[80:88], uint64(g.MftZoneStart))
	le.PutUint64(buf[88:96], uint64(g.MftZoneEnd))
	le.PutUint32(buf[96:100], 32)
	le.PutUint16(buf[100:102], g.MajorVersion)
	le.PutUint16(buf[102:104], g.MinorVersion)
	return buf
}

// BuildFileRecordOutput wraps a raw record the way
// FSCTL_GET_NTFS_FILE_RECORD returns it.
func BuildFileRecordOutput(record_number int64, record []byte) []byte {
	buf := make([]byte, parser.NTFS_FILE_RECORD_OUTPUT_BUFFER_HEADER+len(record))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(record_number))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(record)))
	copy(buf[12:], record)
	return buf
}
