package remotetag

import (
	"io"

	"github.com/dhowden/tag"
)

// Tags holds the metadata reported back for a file.
type Tags struct {
	Title  string
	Artist string
	Album  string
}

// ReadTags parses ID3v1/ID3v2, MP4, FLAC or OGG metadata from r.
func ReadTags(r io.ReadSeeker) (*Tags, error) {
	m, err := tag.ReadFrom(r)
	if err != nil {
		return nil, err
	}

	return &Tags{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
	}, nil
}
