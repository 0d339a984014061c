// Package transport implements an asynchronous, callback driven HTTP URL
// loader. Blocking network I/O runs on a helper goroutine and its completion
// is delivered by posting a callback onto an event loop, so callers on the
// loop never block on the network.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Result codes passed to completion callbacks and returned by Open and
// ReadResponseBody. Non-negative callback results from ReadResponseBody are
// byte counts.
const (
	OK                int32 = 0
	CompletionPending int32 = -1
	ErrFailed         int32 = -2
	ErrBadArgument    int32 = -4
	ErrInProgress     int32 = -5
	ErrBadResponse    int32 = -6
	ErrClosed         int32 = -7
)

var ErrInvalidURL = errors.New("transport: invalid url")

// Callback receives the result of an asynchronous operation. It always runs
// on the event loop and must not block.
type Callback func(result int32)

// Poster schedules a function to run later on the event loop.
type Poster interface {
	Post(fn func())
}

// Request describes one HTTP request to be opened by a Loader.
type Request struct {
	URL    string
	Method string
	Header http.Header
}

// NewRequest returns a GET request for rawURL. Only absolute http and https
// URLs are accepted.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	return &Request{
		URL:    u.String(),
		Method: http.MethodGet,
		Header: make(http.Header),
	}, nil
}

// SetRange restricts the request to the inclusive byte interval [start,end].
func (r *Request) SetRange(start, end int64) {
	r.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
}

// Client creates loaders sharing one http.Client and one event loop.
type Client struct {
	// HTTP is the client used to perform requests. Deadlines are enforced
	// through its Timeout.
	HTTP *http.Client

	// Loop receives completion callbacks.
	Loop Poster

	// Logger receives diagnostic messages. nil disables logging.
	Logger *log.Logger
}

func NewClient(loop Poster) *Client {
	return &Client{
		HTTP:   http.DefaultClient,
		Loop:   loop,
		Logger: log.Default(),
	}
}

func (c *Client) logf(format string, args ...any) {
	if c.Logger == nil {
		return
	}
	c.Logger.Printf(format, args...)
}

// NewLoader returns a loader bound to this client.
func (c *Client) NewLoader() *Loader {
	return &Loader{client: c}
}

// Loader performs one HTTP request and reads its body. Only one operation
// may be outstanding at a time; a second call while one is pending fails
// immediately with ErrInProgress.
type Loader struct {
	client *Client

	lk     sync.Mutex
	busy   bool
	closed bool
	resp   *http.Response
	cancel context.CancelFunc
}

func (l *Loader) begin() int32 {
	l.lk.Lock()
	defer l.lk.Unlock()

	if l.closed {
		return ErrClosed
	}
	if l.busy {
		return ErrInProgress
	}
	l.busy = true
	return CompletionPending
}

func (l *Loader) finish(cb Callback, result int32) {
	l.lk.Lock()
	l.busy = false
	l.lk.Unlock()

	l.client.Loop.Post(func() { cb(result) })
}

// Open issues req. The callback receives OK once response headers are
// available, or an error code. Any return value other than
// CompletionPending means the callback will never be called.
func (l *Loader) Open(req *Request, cb Callback) int32 {
	if req == nil || cb == nil {
		return ErrBadArgument
	}

	l.lk.Lock()
	opened := l.resp != nil
	l.lk.Unlock()
	if opened {
		return ErrInProgress
	}

	if res := l.begin(); res != CompletionPending {
		return res
	}

	ctx, cancel := context.WithCancel(context.Background())
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		cancel()
		l.lk.Lock()
		l.busy = false
		l.lk.Unlock()
		l.client.logf("transport: failed to create request: %s", err)
		return ErrBadArgument
	}
	for k, v := range req.Header {
		hreq.Header[k] = v
	}

	l.lk.Lock()
	l.cancel = cancel
	l.lk.Unlock()

	go func() {
		resp, err := l.client.HTTP.Do(hreq)
		if err != nil {
			l.client.logf("transport: request failed: %s", err)
			l.finish(cb, ErrFailed)
			return
		}
		if resp.StatusCode > 299 {
			resp.Body.Close()
			l.client.logf("transport: failed to download: %s", resp.Status)
			l.finish(cb, ErrBadResponse)
			return
		}

		l.lk.Lock()
		l.resp = resp
		l.lk.Unlock()
		l.finish(cb, OK)
	}()

	return CompletionPending
}

// StatusCode returns the HTTP status of the opened response, or 0.
func (l *Loader) StatusCode() int {
	l.lk.Lock()
	defer l.lk.Unlock()

	if l.resp == nil {
		return 0
	}
	return l.resp.StatusCode
}

// ResponseHeaders returns the response headers as raw "Name: value" lines
// separated by newlines, or an empty string when nothing was opened.
func (l *Loader) ResponseHeaders() string {
	l.lk.Lock()
	defer l.lk.Unlock()

	if l.resp == nil {
		return ""
	}

	keys := make([]string, 0, len(l.resp.Header))
	for k := range l.resp.Header {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	if l.resp.ContentLength >= 0 {
		b.WriteString("Content-Length: ")
		b.WriteString(strconv.FormatInt(l.resp.ContentLength, 10))
		b.WriteByte('\n')
	}
	for _, k := range keys {
		for _, v := range l.resp.Header[k] {
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// ReadResponseBody reads up to len(p) bytes of the body into p. The callback
// receives the number of bytes read (0 at end of body) or an error code.
// p must not be touched until the callback runs.
func (l *Loader) ReadResponseBody(p []byte, cb Callback) int32 {
	if cb == nil {
		return ErrBadArgument
	}

	l.lk.Lock()
	resp := l.resp
	l.lk.Unlock()
	if resp == nil {
		return ErrFailed
	}
	if len(p) == 0 {
		return ErrBadArgument
	}

	if res := l.begin(); res != CompletionPending {
		return res
	}

	go func() {
		n, err := io.ReadFull(resp.Body, p)
		switch {
		case err == nil, errors.Is(err, io.ErrUnexpectedEOF):
			l.finish(cb, int32(n))
		case errors.Is(err, io.EOF):
			l.finish(cb, OK)
		default:
			l.client.logf("transport: body read failed: %s", err)
			l.finish(cb, ErrFailed)
		}
	}()

	return CompletionPending
}

// Close releases the response body. A pending operation still completes
// and delivers its callback.
func (l *Loader) Close() error {
	l.lk.Lock()
	defer l.lk.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var err error
	if l.resp != nil {
		err = l.resp.Body.Close()
	}
	if l.cancel != nil && !l.busy {
		l.cancel()
	}
	return err
}
