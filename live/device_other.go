//go:build !windows
// +build !windows

package live

func OpenDevice(path string) (Device, error) {
	return nil, ErrUnsupported
}
