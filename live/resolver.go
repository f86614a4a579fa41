package live

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	driveLetterRegex = regexp.MustCompile(`^([a-zA-Z]):`)
	devicePathRegex  = regexp.MustCompile(`^\\\\[\?\.]\\`)
)

// PathResolver finds the MFT entry of a file and the device path of
// the volume it lives on.
type PathResolver interface {
	Resolve(path string) (entry int64, volume string, err error)
}

// VolumeDevicePath converts a volume mount point to a path that can
// be opened for device control. Drive letters become \\.\X: and
// device paths are kept without their trailing separator.
func VolumeDevicePath(root string) (string, error) {
	m := driveLetterRegex.FindStringSubmatch(root)
	if m != nil {
		return `\\.\` + strings.ToUpper(m[1]) + ":", nil
	}

	if devicePathRegex.MatchString(root) {
		return strings.TrimRight(root, `\/`), nil
	}

	return "", fmt.Errorf("Unable to determine device for volume %v", root)
}

// FileIndexToEntry drops the sequence number from a file index.
func FileIndexToEntry(high, low uint32) int64 {
	return int64((uint64(high)<<32 | uint64(low)) & 0xffffffffffff)
}
