package remotetag

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/roaring64"
)

// cachePageSize is the allocation unit of the cache. Memory is only
// allocated for pages holding at least one fetched byte.
const cachePageSize = 4096

// Cache is a sparse offset→byte store that remembers which absolute offsets
// have been filled. Presence is tracked in a roaring bitmap (1 bit set per
// cached byte), data lives in lazily allocated pages, so memory use follows
// the amount of data actually cached rather than the size of the remote
// file.
type Cache struct {
	present *roaring64.Bitmap
	pages   map[int64][]byte
}

func NewCache() *Cache {
	return &Cache{
		present: roaring64.New(),
		pages:   make(map[int64][]byte),
	}
}

// Has reports whether the byte at off is cached.
func (c *Cache) Has(off int64) bool {
	if off < 0 {
		return false
	}
	return c.present.Contains(uint64(off))
}

// Get returns the cached byte at off. It panics if the byte is not cached.
func (c *Cache) Get(off int64) byte {
	if !c.Has(off) {
		panic(fmt.Sprintf("remotetag: cache miss at offset %d", off))
	}
	return c.pages[off/cachePageSize][off%cachePageSize]
}

// Set stores b at off.
func (c *Cache) Set(off int64, b byte) {
	if off < 0 {
		panic(fmt.Sprintf("remotetag: negative cache offset %d", off))
	}
	c.page(off / cachePageSize)[off%cachePageSize] = b
	c.present.Add(uint64(off))
}

// Write stores data at consecutive offsets starting at start.
func (c *Cache) Write(start int64, data []byte) {
	if len(data) == 0 {
		return
	}
	if start < 0 {
		panic(fmt.Sprintf("remotetag: negative cache offset %d", start))
	}

	off := start
	rest := data
	for len(rest) > 0 {
		pg := c.page(off / cachePageSize)
		n := copy(pg[off%cachePageSize:], rest)
		rest = rest[n:]
		off += int64(n)
	}

	c.present.AddRange(uint64(start), uint64(start)+uint64(len(data)))
}

// HasRange reports whether every offset of the inclusive range [start,end]
// is cached. An empty range (end < start) is never considered cached.
func (c *Cache) HasRange(start, end int64) bool {
	if end < start || start < 0 {
		return false
	}

	// number of cached offsets within [start,end]
	cnt := c.present.Rank(uint64(end))
	if start > 0 {
		cnt -= c.present.Rank(uint64(start - 1))
	}
	return cnt == uint64(end-start+1)
}

// ReadRange returns a copy of the cached bytes in [start,end]. It panics
// unless HasRange(start, end) holds.
func (c *Cache) ReadRange(start, end int64) []byte {
	if !c.HasRange(start, end) {
		panic(fmt.Sprintf("remotetag: range %d-%d is not cached", start, end))
	}

	res := make([]byte, end-start+1)
	off := start
	buf := res
	for len(buf) > 0 {
		n := copy(buf, c.pages[off/cachePageSize][off%cachePageSize:])
		buf = buf[n:]
		off += int64(n)
	}
	return res
}

// Len returns the number of cached bytes.
func (c *Cache) Len() int64 {
	return int64(c.present.GetCardinality())
}

// Reset drops all cached data.
func (c *Cache) Reset() {
	c.present.Clear()
	c.pages = make(map[int64][]byte)
}

func (c *Cache) page(idx int64) []byte {
	pg, ok := c.pages[idx]
	if !ok {
		pg = make([]byte, cachePageSize)
		c.pages[idx] = pg
	}
	return pg
}
