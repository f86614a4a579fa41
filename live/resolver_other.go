//go:build !windows
// +build !windows

package live

type unsupportedResolver struct{}

func (self unsupportedResolver) Resolve(path string) (int64, string, error) {
	return 0, "", ErrUnsupported
}

func NewPathResolver() PathResolver {
	return unsupportedResolver{}
}
