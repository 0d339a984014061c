package remotetag

import (
	"io"
)

// Seek moves the cursor relative to origin and returns the new position.
// No bounds checking happens: the cursor may end up negative or past the
// end. For FromEnd the sign of offset is ignored and the cursor is set to
// Length()-|offset|, so both Seek(100, FromEnd) and Seek(-100, FromEnd)
// land 100 bytes before the end.
func (s *Stream) Seek(offset int64, origin Origin) int64 {
	old := s.cursor

	switch origin {
	case FromStart:
		s.cursor = offset
	case FromCurrent:
		s.cursor += offset
	case FromEnd:
		if offset < 0 {
			offset = -offset
		}
		s.cursor = s.length - offset
	}

	s.logf("stream: seek %d %d %d %s", old, offset, s.cursor, origin)
	return s.cursor
}

// Tell returns the cursor.
func (s *Stream) Tell() int64 {
	return s.cursor
}

// Clear resets the cursor to the start of the file.
func (s *Stream) Clear() {
	s.logf("stream: clear")
	s.cursor = 0
}

// Length returns the length of the remote file as declared at construction.
func (s *Stream) Length() int64 {
	return s.length
}

// ReadBlock reads up to n bytes at the cursor and advances the cursor by
// the number of bytes returned. Cached bytes are served without network
// access; otherwise the whole range is fetched and cached.
//
// n <= 0 returns nothing and leaves the cursor alone. A cursor outside
// [0,Length()) returns io.EOF. A failed fetch returns the error and leaves
// the cursor unchanged. Fewer than n bytes may be returned near the end of
// the file.
func (s *Stream) ReadBlock(n int64) ([]byte, error) {
	start := s.cursor
	end := start + n - 1

	if end < start {
		return nil, nil
	}
	if start < 0 || start >= s.length {
		return nil, io.EOF
	}
	if end >= s.length {
		end = s.length - 1
	}

	if s.cache.HasRange(start, end) {
		buf := s.cache.ReadRange(start, end)
		s.cursor += int64(len(buf))
		s.stats.CacheHits++
		return buf, nil
	}

	s.logf("stream: read %d bytes at %d", end-start+1, start)
	s.stats.Fetches++

	buf, err := s.fetcher.Fetch(start, end)
	if err != nil {
		s.stats.FetchErrors++
		s.logf("stream: read at %d failed: %s", start, err)
		return nil, err
	}

	s.cache.Write(start, buf)
	s.cursor += int64(len(buf))
	s.stats.BytesFetched += int64(len(buf))
	return buf, nil
}

// Precache warms the cache with the head and tail of the file, where tag
// and container metadata usually lives, so a typical parser run needs at
// most two round trips. The cursor is always 0 on return.
func (s *Stream) Precache() {
	s.Clear()
	defer s.Clear()

	prefix := min(s.prefixSize, s.length)
	if prefix > 0 {
		s.ReadBlock(prefix)
	}

	suffix := min(s.suffixSize, s.length)
	if suffix > 0 {
		s.Seek(suffix, FromEnd)
		s.ReadBlock(suffix)
	}
}
