package parser

import (
	"encoding/binary"
)

// https://learn.microsoft.com/en-us/windows/win32/api/winioctl/ns-winioctl-ntfs_file_record_output_buffer
const NTFS_FILE_RECORD_OUTPUT_BUFFER_HEADER = 12

// MFTRecordBuffer is the output of FSCTL_GET_NTFS_FILE_RECORD. The
// device returns the closest allocated record at or below the
// requested entry so RecordNumber may differ from the request.
type MFTRecordBuffer struct {
	RecordNumber int64
	Record       []byte
}

func DecodeMFTRecordBuffer(buf []byte) (*MFTRecordBuffer, error) {
	if len(buf) < NTFS_FILE_RECORD_OUTPUT_BUFFER_HEADER {
		return nil, &MalformedRecordBufferError{
			Offset: 0, Reason: "file record output shorter than its header"}
	}

	record_number := int64(binary.LittleEndian.Uint64(buf[0:8]))
	length := int(binary.LittleEndian.Uint32(buf[8:12]))

	remaining := len(buf) - NTFS_FILE_RECORD_OUTPUT_BUFFER_HEADER
	if length > remaining {
		return nil, &MalformedRecordBufferError{
			Offset: 8, Reason: "file record length exceeds buffer"}
	}

	record := make([]byte, length)
	copy(record, buf[NTFS_FILE_RECORD_OUTPUT_BUFFER_HEADER:])

	return &MFTRecordBuffer{
		RecordNumber: record_number,
		Record:       record,
	}, nil
}
