package remotetag

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/KarpelesLab/remotetag/transport"
)

// Fetcher retrieves the inclusive byte range [start,end] of a remote file.
// The returned slice may be shorter than requested near the end of the file.
type Fetcher interface {
	Fetch(start, end int64) ([]byte, error)
}

// URLLoader is an asynchronous HTTP loader as implemented by
// *transport.Loader. Callbacks are delivered on the event loop.
type URLLoader interface {
	Open(req *transport.Request, cb transport.Callback) int32
	StatusCode() int
	ResponseHeaders() string
	ReadResponseBody(p []byte, cb transport.Callback) int32
	Close() error
}

// Suspender suspends the calling worker flow until resumed from the event
// loop, as implemented by *coroutine.Switch.
type Suspender interface {
	Block() error
	Resume() error
}

// RangeFetcher turns a callback driven URLLoader into blocking range
// fetches. Fetch must run inside a worker flow of sw: it suspends the flow
// while the transport works, and the completion callbacks resume it.
type RangeFetcher struct {
	url       string
	newLoader func() URLLoader
	sw        Suspender
	logger    *log.Logger
}

// NewRangeFetcher returns a fetcher for url. newLoader is called once per
// fetch; logger may be nil.
func NewRangeFetcher(url string, newLoader func() URLLoader, sw Suspender, logger *log.Logger) *RangeFetcher {
	return &RangeFetcher{
		url:       url,
		newLoader: newLoader,
		sw:        sw,
		logger:    logger,
	}
}

func (f *RangeFetcher) logf(format string, args ...any) {
	if f.logger == nil {
		return
	}
	f.logger.Printf(format, args...)
}

// Fetch issues a single GET request with a Range header for [start,end]
// and returns the body. The caller guarantees end >= start.
func (f *RangeFetcher) Fetch(start, end int64) ([]byte, error) {
	fail := func(op string, code int32, err error) ([]byte, error) {
		e := &FetchError{Op: op, Start: start, End: end, Code: code, Err: err}
		f.logf("Error: %s", e)
		return nil, e
	}

	req, err := transport.NewRequest(f.url)
	if err != nil {
		return fail("request", 0, fmt.Errorf("%w: %s", ErrRequestCreation, err))
	}
	req.SetRange(start, end)
	f.logf("Range: bytes=%d-%d", start, end)

	ld := f.newLoader()
	defer ld.Close()

	var result int32
	done := func(res int32) {
		result = res
		if err := f.sw.Resume(); err != nil {
			f.logf("unable to resume fetch %d-%d: %s", start, end, err)
		}
	}

	res := ld.Open(req, done)
	if res != transport.CompletionPending {
		return fail("open", res, ErrTransportOpen)
	}
	if err := f.sw.Block(); err != nil {
		return fail("open", 0, fmt.Errorf("%w: %s", ErrTransportOpen, err))
	}
	if result != transport.OK {
		return fail("open", result, ErrTransportOpen)
	}

	headers := parseHeaders(ld.ResponseHeaders())
	length, err := strconv.ParseInt(headers["content-length"], 10, 64)
	if err != nil || length < 0 {
		return fail("headers", 0, ErrInvalidContentLength)
	}

	want := end - start + 1
	f.logf("Read: %d/%d", length, want)

	if ld.StatusCode() == http.StatusOK && start > 0 {
		// full body starting at offset 0, not what we asked for
		return fail("headers", 0, ErrRangeIgnored)
	}
	if length > want {
		length = want
	}

	buf := make([]byte, length)
	var got int64
	for got < length {
		res := ld.ReadResponseBody(buf[got:], done)
		if res != transport.CompletionPending {
			return fail("read", res, ErrTransportRead)
		}
		if err := f.sw.Block(); err != nil {
			return fail("read", 0, fmt.Errorf("%w: %s", ErrTransportRead, err))
		}
		if result < 0 {
			return fail("read", result, ErrTransportRead)
		}
		if result == 0 {
			// body ended early
			break
		}
		got += int64(result)
	}

	if got < want {
		f.logf("short read at %d: %d/%d bytes", start, got, want)
	}
	return buf[:got], nil
}

// parseHeaders parses raw "Name: value" lines into a map keyed by the
// lowercased header name. Each line is split on its first colon; lines
// without a colon are ignored.
func parseHeaders(raw string) map[string]string {
	res := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		res[k] = strings.TrimSpace(v)
	}
	return res
}
