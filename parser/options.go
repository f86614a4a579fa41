package parser

const (
	DefaultPathCacheSize = 100
)

type Options struct {
	// Number of resolved paths kept in the folder mapping cache.
	PathCacheSize int

	// Maximum directory depth to walk when enumerating paths.
	MaxDirectoryDepth int

	// Only directory records update the folder mapping. Setting this
	// applies file records too, which makes the mapping track every
	// name seen in the journal.
	MapFiles bool
}

func GetDefaultOptions() Options {
	return Options{
		PathCacheSize:     DefaultPathCacheSize,
		MaxDirectoryDepth: 255,
	}
}
