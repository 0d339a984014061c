package remotetag

import (
	"log"
)

const (
	// DefaultPrefixSize is the number of bytes Precache reads from the start
	// of the file.
	DefaultPrefixSize = 64 * 1024

	// DefaultSuffixSize is the number of bytes Precache reads from the end
	// of the file.
	DefaultSuffixSize = 8 * 1024
)

// Origin selects what a Seek offset is relative to.
type Origin int

const (
	FromStart Origin = iota
	FromCurrent
	FromEnd
)

func (o Origin) String() string {
	switch o {
	case FromStart:
		return "start"
	case FromCurrent:
		return "current"
	case FromEnd:
		return "end"
	default:
		return "unknown"
	}
}

// BlockStream is the set of operations byte oriented parsers use to walk a
// remote file.
type BlockStream interface {
	Seek(offset int64, origin Origin) int64
	Tell() int64
	ReadBlock(n int64) ([]byte, error)
	Length() int64
	Clear()
}

// Stream is a read-only, seekable view of a remote file of known length.
// Bytes are fetched on demand through a Fetcher and kept in a sparse cache,
// so a given offset is only downloaded once for the lifetime of the Stream.
//
// A Stream is owned by a single worker flow and is not safe for concurrent
// use.
type Stream struct {
	url    string
	length int64 // authoritative, set at construction
	cursor int64 // not bounds checked

	cache   *Cache
	fetcher Fetcher
	stats   Stats

	prefixSize int64
	suffixSize int64

	logger *log.Logger
}

var _ BlockStream = (*Stream)(nil)

// Option configures a Stream.
type Option func(*Stream)

// WithPrefixSize sets the size of the window Precache reads at the start
// of the file.
func WithPrefixSize(n int64) Option {
	return func(s *Stream) { s.prefixSize = n }
}

// WithSuffixSize sets the size of the window Precache reads at the end of
// the file.
func WithSuffixSize(n int64) Option {
	return func(s *Stream) { s.suffixSize = n }
}

// WithLogger sets the logger receiving diagnostics. nil disables them.
func WithLogger(l *log.Logger) Option {
	return func(s *Stream) { s.logger = l }
}

// NewStream returns a stream over the remote file at url, which is trusted
// to be length bytes long. Missing bytes are retrieved with f.
func NewStream(url string, length int64, f Fetcher, opts ...Option) *Stream {
	s := &Stream{
		url:        url,
		length:     length,
		cache:      NewCache(),
		fetcher:    f,
		prefixSize: DefaultPrefixSize,
		suffixSize: DefaultSuffixSize,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logf("stream: new stream for %s (%d bytes)", url, length)
	return s
}

func (s *Stream) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}

// URL returns the url of the remote file.
func (s *Stream) URL() string {
	return s.url
}

// ReadOnly always returns true.
func (s *Stream) ReadOnly() bool {
	return true
}

// Cache returns the cache backing the stream.
func (s *Stream) Cache() *Cache {
	return s.cache
}
