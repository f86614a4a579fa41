//go:build windows
// +build windows

package live

import (
	"golang.org/x/sys/windows"
)

type windowsError struct {
	err windows.Errno
}

func (self windowsError) Error() string {
	return self.err.Error()
}

func (self windowsError) ErrorCode() uint32 {
	return uint32(self.err)
}

func wrapErrno(err error) error {
	errno, ok := err.(windows.Errno)
	if ok {
		return windowsError{err: errno}
	}
	return err
}

type windowsDevice struct {
	handle windows.Handle
}

func (self *windowsDevice) DeviceIoControl(
	code uint32, in []byte, out []byte) (uint32, error) {
	var in_ptr, out_ptr *byte
	if len(in) > 0 {
		in_ptr = &in[0]
	}
	if len(out) > 0 {
		out_ptr = &out[0]
	}

	var returned uint32
	err := windows.DeviceIoControl(self.handle, code,
		in_ptr, uint32(len(in)), out_ptr, uint32(len(out)), &returned, nil)
	if err != nil {
		return 0, wrapErrno(err)
	}
	return returned, nil
}

func (self *windowsDevice) Close() error {
	return windows.CloseHandle(self.handle)
}

// OpenDevice opens a volume device path like \\.\C: for device
// control. This requires administrator privileges.
func OpenDevice(path string) (Device, error) {
	pathp, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}

	handle, err := windows.CreateFile(pathp,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil, windows.OPEN_EXISTING, windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return nil, wrapErrno(err)
	}

	return &windowsDevice{handle: handle}, nil
}
