package parser

import (
	"encoding/binary"
	"time"
	"unicode/utf16"
)

const (
	// Seconds between 1601-01-01 and 1970-01-01 in 100ns units.
	filetimeEpochDelta = 11644473600000 * 10000
)

func filetimeToUnixtime(ft uint64) uint64 {
	return (ft - filetimeEpochDelta) * 100
}

// A FileTime object is a timestamp in windows filetime format.
type WinFileTime struct {
	time.Time
}

func NewWinFileTime(filetime uint64) WinFileTime {
	// Timestamps before the unix epoch are not meaningful in a live
	// journal and would underflow.
	if filetime < filetimeEpochDelta {
		return WinFileTime{time.Unix(0, 0).UTC()}
	}
	return WinFileTime{time.Unix(0, int64(filetimeToUnixtime(filetime))).UTC()}
}

// Decode a little endian UTF16 string, stopping at the first NUL.
func ParseUTF16String(b []byte) string {
	ints := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		v := binary.LittleEndian.Uint16(b[i : i+2])
		if v == 0 {
			break
		}
		ints = append(ints, v)
	}
	return string(utf16.Decode(ints))
}

func CapInt64(v int64, max int64) int64 {
	if v > max {
		return max
	}
	return v
}
