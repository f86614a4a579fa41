package parser

import (
	"strings"
)

// https://learn.microsoft.com/en-us/windows/win32/api/winioctl/ns-winioctl-usn_record_v2
const (
	USN_REASON_DATA_OVERWRITE        = 0x00000001
	USN_REASON_DATA_EXTEND           = 0x00000002
	USN_REASON_DATA_TRUNCATION       = 0x00000004
	USN_REASON_NAMED_DATA_OVERWRITE  = 0x00000010
	USN_REASON_NAMED_DATA_EXTEND     = 0x00000020
	USN_REASON_NAMED_DATA_TRUNCATION = 0x00000040
	USN_REASON_FILE_CREATE           = 0x00000100
	USN_REASON_FILE_DELETE           = 0x00000200
	USN_REASON_EA_CHANGE             = 0x00000400
	USN_REASON_SECURITY_CHANGE       = 0x00000800
	USN_REASON_RENAME_OLD_NAME       = 0x00001000
	USN_REASON_RENAME_NEW_NAME       = 0x00002000
	USN_REASON_INDEXABLE_CHANGE      = 0x00004000
	USN_REASON_BASIC_INFO_CHANGE     = 0x00008000
	USN_REASON_HARD_LINK_CHANGE      = 0x00010000
	USN_REASON_COMPRESSION_CHANGE    = 0x00020000
	USN_REASON_ENCRYPTION_CHANGE     = 0x00040000
	USN_REASON_OBJECT_ID_CHANGE      = 0x00080000
	USN_REASON_REPARSE_POINT_CHANGE  = 0x00100000
	USN_REASON_STREAM_CHANGE         = 0x00200000
	USN_REASON_TRANSACTED_CHANGE     = 0x00400000
	USN_REASON_INTEGRITY_CHANGE      = 0x00800000
	USN_REASON_CLOSE                 = 0x80000000

	FILE_ATTRIBUTE_DIRECTORY = 0x00000010
)

type flagName struct {
	value uint32
	name  string
}

// Kept in bit order so rendered names are stable.
var (
	reasonNames = []flagName{
		{USN_REASON_DATA_OVERWRITE, "USN_REASON_DATA_OVERWRITE"},
		{USN_REASON_DATA_EXTEND, "USN_REASON_DATA_EXTEND"},
		{USN_REASON_DATA_TRUNCATION, "USN_REASON_DATA_TRUNCATION"},
		{USN_REASON_NAMED_DATA_OVERWRITE, "USN_REASON_NAMED_DATA_OVERWRITE"},
		{USN_REASON_NAMED_DATA_EXTEND, "USN_REASON_NAMED_DATA_EXTEND"},
		{USN_REASON_NAMED_DATA_TRUNCATION, "USN_REASON_NAMED_DATA_TRUNCATION"},
		{USN_REASON_FILE_CREATE, "USN_REASON_FILE_CREATE"},
		{USN_REASON_FILE_DELETE, "USN_REASON_FILE_DELETE"},
		{USN_REASON_EA_CHANGE, "USN_REASON_EA_CHANGE"},
		{USN_REASON_SECURITY_CHANGE, "USN_REASON_SECURITY_CHANGE"},
		{USN_REASON_RENAME_OLD_NAME, "USN_REASON_RENAME_OLD_NAME"},
		{USN_REASON_RENAME_NEW_NAME, "USN_REASON_RENAME_NEW_NAME"},
		{USN_REASON_INDEXABLE_CHANGE, "USN_REASON_INDEXABLE_CHANGE"},
		{USN_REASON_BASIC_INFO_CHANGE, "USN_REASON_BASIC_INFO_CHANGE"},
		{USN_REASON_HARD_LINK_CHANGE, "USN_REASON_HARD_LINK_CHANGE"},
		{USN_REASON_COMPRESSION_CHANGE, "USN_REASON_COMPRESSION_CHANGE"},
		{USN_REASON_ENCRYPTION_CHANGE, "USN_REASON_ENCRYPTION_CHANGE"},
		{USN_REASON_OBJECT_ID_CHANGE, "USN_REASON_OBJECT_ID_CHANGE"},
		{USN_REASON_REPARSE_POINT_CHANGE, "USN_REASON_REPARSE_POINT_CHANGE"},
		{USN_REASON_STREAM_CHANGE, "USN_REASON_STREAM_CHANGE"},
		{USN_REASON_TRANSACTED_CHANGE, "USN_REASON_TRANSACTED_CHANGE"},
		{USN_REASON_INTEGRITY_CHANGE, "USN_REASON_INTEGRITY_CHANGE"},
		{USN_REASON_CLOSE, "USN_REASON_CLOSE"},
	}

	sourceInfoNames = []flagName{
		{0x00000001, "USN_SOURCE_DATA_MANAGEMENT"},
		{0x00000002, "USN_SOURCE_AUXILIARY_DATA"},
		{0x00000004, "USN_SOURCE_REPLICATION_MANAGEMENT"},
		{0x00000008, "USN_SOURCE_CLIENT_REPLICATION_MANAGEMENT"},
	}

	fileAttributeNames = []flagName{
		{0x00000001, "FILE_ATTRIBUTE_READONLY"},
		{0x00000002, "FILE_ATTRIBUTE_HIDDEN"},
		{0x00000004, "FILE_ATTRIBUTE_SYSTEM"},
		{FILE_ATTRIBUTE_DIRECTORY, "FILE_ATTRIBUTE_DIRECTORY"},
		{0x00000020, "FILE_ATTRIBUTE_ARCHIVE"},
		{0x00000040, "FILE_ATTRIBUTE_DEVICE"},
		{0x00000080, "FILE_ATTRIBUTE_NORMAL"},
		{0x00000100, "FILE_ATTRIBUTE_TEMPORARY"},
		{0x00000200, "FILE_ATTRIBUTE_SPARSE_FILE"},
		{0x00000400, "FILE_ATTRIBUTE_REPARSE_POINT"},
		{0x00000800, "FILE_ATTRIBUTE_COMPRESSED"},
		{0x00001000, "FILE_ATTRIBUTE_OFFLINE"},
		{0x00002000, "FILE_ATTRIBUTE_NOT_CONTENT_INDEXED"},
		{0x00004000, "FILE_ATTRIBUTE_ENCRYPTED"},
		{0x00008000, "FILE_ATTRIBUTE_INTEGRITY_STREAM"},
		{0x00010000, "FILE_ATTRIBUTE_VIRTUAL"},
		{0x00020000, "FILE_ATTRIBUTE_NO_SCRUB_DATA"},
		{0x00040000, "FILE_ATTRIBUTE_EA"},
		{0x00080000, "FILE_ATTRIBUTE_PINNED"},
		{0x00100000, "FILE_ATTRIBUTE_UNPINNED"},
		{0x00400000, "FILE_ATTRIBUTE_RECALL_ON_DATA_ACCESS"},
	}
)

func flagValues(value uint32, names []flagName) []string {
	result := []string{}
	for _, n := range names {
		if value&n.value != 0 {
			result = append(result, n.name)
		}
	}
	return result
}

func ReasonNames(reason uint32) []string {
	return flagValues(reason, reasonNames)
}

func SourceInfoNames(source_info uint32) []string {
	return flagValues(source_info, sourceInfoNames)
}

func FileAttributeNames(attributes uint32) []string {
	return flagValues(attributes, fileAttributeNames)
}

// ParseReasonMask accepts either names (with or without the
// USN_REASON_ prefix) separated by | or ,.
func ParseReasonMask(names string) (uint32, bool) {
	result := uint32(0)
	for _, part := range strings.FieldsFunc(names, func(r rune) bool {
		return r == '|' || r == ','
	}) {
		name := strings.ToUpper(strings.TrimSpace(part))
		if !strings.HasPrefix(name, "USN_REASON_") {
			name = "USN_REASON_" + name
		}

		found := false
		for _, n := range reasonNames {
			if n.name == name {
				result |= n.value
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return result, result != 0
}
