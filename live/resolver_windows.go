//go:build windows
// +build windows

package live

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

type windowsResolver struct{}

func (self windowsResolver) Resolve(path string) (int64, string, error) {
	pathp, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, "", err
	}

	// Backup semantics are needed to open directories.
	handle, err := windows.CreateFile(pathp, 0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil, windows.OPEN_EXISTING, windows.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return 0, "", errors.Wrap(err, "Resolve "+path)
	}
	defer windows.CloseHandle(handle)

	var info windows.ByHandleFileInformation
	err = windows.GetFileInformationByHandle(handle, &info)
	if err != nil {
		return 0, "", errors.Wrap(err, "GetFileInformationByHandle")
	}

	root := make([]uint16, windows.MAX_PATH)
	err = windows.GetVolumePathName(pathp, &root[0], uint32(len(root)))
	if err != nil {
		return 0, "", errors.Wrap(err, "GetVolumePathName")
	}

	volume, err := VolumeDevicePath(windows.UTF16ToString(root))
	if err != nil {
		return 0, "", err
	}

	return FileIndexToEntry(info.FileIndexHigh, info.FileIndexLow), volume, nil
}

func NewPathResolver() PathResolver {
	return windowsResolver{}
}
