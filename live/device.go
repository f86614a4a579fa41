// Device control calls against a live NTFS volume handle.

package live

import (
	"encoding/binary"
	"errors"

	"www.velocidex.com/golang/ntfsmon/parser"
)

const (
	FSCTL_GET_NTFS_VOLUME_DATA = 0x90064
	FSCTL_GET_NTFS_FILE_RECORD = 0x90068
	FSCTL_READ_USN_JOURNAL     = 0x900bb
	FSCTL_QUERY_USN_JOURNAL    = 0x900f4

	NTFS_VOLUME_DATA_BUFFER_SIZE = 128
	USN_JOURNAL_DATA_BUFFER_SIZE = 80
	READ_USN_JOURNAL_BUFFER_SIZE = 4096
)

var (
	ErrUnsupported = errors.New("Live volumes are only supported on Windows")
)

// Device is an open volume handle. DeviceIoControl returns the
// number of bytes written into out.
type Device interface {
	DeviceIoControl(code uint32, in []byte, out []byte) (uint32, error)
	Close() error
}

// The OS error code if the error carries one.
type errorCoder interface {
	ErrorCode() uint32
}

func ioctl(dev Device, op string, code uint32, in []byte, out_size int) ([]byte, error) {
	out := make([]byte, out_size)
	n, err := dev.DeviceIoControl(code, in, out)
	if err != nil {
		result := &parser.DeviceError{Op: op, Err: err}
		coder, ok := err.(errorCoder)
		if ok {
			result.Code = coder.ErrorCode()
		}
		return nil, result
	}

	if int(n) > len(out) {
		n = uint32(len(out))
	}
	return out[:n], nil
}

func GetVolumeGeometry(dev Device) (*parser.VolumeGeometry, error) {
	buf, err := ioctl(dev, "GetVolumeGeometry", FSCTL_GET_NTFS_VOLUME_DATA,
		nil, NTFS_VOLUME_DATA_BUFFER_SIZE)
	if err != nil {
		return nil, err
	}
	return parser.DecodeVolumeGeometry(buf)
}

// QueryJournal returns the journal metadata. The journal version
// is inferred from the number of bytes the device returned.
func QueryJournal(dev Device) (*parser.JournalMetadata, error) {
	buf, err := ioctl(dev, "QueryJournal", FSCTL_QUERY_USN_JOURNAL,
		nil, USN_JOURNAL_DATA_BUFFER_SIZE)
	if err != nil {
		return nil, err
	}
	return parser.DecodeJournalMetadata(buf)
}

// ReadJournal returns the raw read buffer: the next usn followed by
// zero or more records.
func ReadJournal(dev Device, request *parser.ReadRequest) ([]byte, error) {
	return ioctl(dev, "ReadJournal", FSCTL_READ_USN_JOURNAL,
		request.Encode(), READ_USN_JOURNAL_BUFFER_SIZE)
}

// FetchMFTRecord asks the file system for the record of entry. The
// returned record may be for a lower entry when entry is not in use.
func FetchMFTRecord(dev Device, entry int64, record_size uint32) (
	*parser.MFTRecordBuffer, error) {
	in := make([]byte, 8)
	binary.LittleEndian.PutUint64(in, uint64(entry))

	buf, err := ioctl(dev, "FetchMFTRecord", FSCTL_GET_NTFS_FILE_RECORD,
		in, int(record_size)+parser.NTFS_FILE_RECORD_OUTPUT_BUFFER_HEADER)
	if err != nil {
		return nil, err
	}
	return parser.DecodeMFTRecordBuffer(buf)
}
