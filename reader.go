package remotetag

import (
	"errors"
	"io"
)

// Reader adapts a Stream to io.Reader, io.Seeker and io.ReaderAt so it can
// be handed to parsers from the standard library and the ecosystem. It
// shares the cursor with the Stream.
type Reader struct {
	s *Stream
}

// Reader returns an io.ReadSeeker/io.ReaderAt view of s.
func (s *Stream) Reader() *Reader {
	return &Reader{s: s}
}

// Read reads from the cursor. It returns io.EOF once the cursor reaches the
// end of the file.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	buf, err := r.s.ReadBlock(int64(len(p)))
	n := copy(p, buf)
	if err != nil {
		return n, err
	}
	if n == 0 {
		// server returned nothing for a range inside the file
		return 0, io.ErrUnexpectedEOF
	}
	return n, nil
}

// Seek implements io.Seeker. Unlike Stream.Seek, end relative offsets keep
// their sign and positions before the start of the file are rejected.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var pos int64

	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = r.s.Tell() + offset
	case io.SeekEnd:
		pos = r.s.Length() + offset
	default:
		return r.s.Tell(), errors.New("invalid seek whence")
	}

	if pos < 0 {
		return r.s.Tell(), ErrInvalidSeek
	}
	return r.s.Seek(pos, FromStart), nil
}

// ReadAt reads len(p) bytes at off without moving the cursor.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidSeek
	}

	saved := r.s.Tell()
	defer func() { r.s.cursor = saved }()

	r.s.cursor = off
	n := 0
	for n < len(p) {
		buf, err := r.s.ReadBlock(int64(len(p) - n))
		n += copy(p[n:], buf)
		if err != nil {
			return n, err
		}
		if len(buf) == 0 {
			return n, io.ErrUnexpectedEOF
		}
	}
	return n, nil
}

// Size returns the length of the remote file.
func (r *Reader) Size() int64 {
	return r.s.Length()
}
