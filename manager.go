package remotetag

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/KarpelesLab/remotetag/coroutine"
	"github.com/KarpelesLab/remotetag/eventloop"
	"github.com/KarpelesLab/remotetag/transport"
)

const maxMessageSize = 1024 * 1024

// Host receives tagging jobs, runs them one at a time as worker flows on
// top of a single event loop, and writes one reply line per job.
//
// All job bookkeeping happens on the loop goroutine. A worker flow only
// runs while the loop is handing control to it, so jobs never overlap.
type Host struct {
	// Client is the http client used for range requests. Its Timeout is the
	// only deadline applied to fetches.
	Client *http.Client

	// Logger receives diagnostics. nil disables them.
	Logger *log.Logger

	// PrefixSize and SuffixSize are the Precache windows of each stream.
	PrefixSize int64
	SuffixSize int64

	loop      *eventloop.Loop
	sw        *coroutine.Switch
	transport *transport.Client

	out   io.Writer
	outLk sync.Mutex

	// loop goroutine only
	pending []*Job
	busy    bool
	closing bool
}

// NewHost returns a host writing replies to out.
func NewHost(out io.Writer) *Host {
	h := &Host{
		Client:     http.DefaultClient,
		Logger:     log.Default(),
		PrefixSize: DefaultPrefixSize,
		SuffixSize: DefaultSuffixSize,
		loop:       eventloop.New(),
		sw:         coroutine.New(),
		out:        out,
	}
	h.transport = transport.NewClient(h.loop)
	return h
}

func (h *Host) logf(format string, args ...any) {
	if h.Logger == nil {
		return
	}
	h.Logger.Printf(format, args...)
}

// Run reads newline delimited job messages from in and processes them. It
// returns once in is exhausted and every job has replied, or when ctx is
// done. A Host can only be run once.
func (h *Host) Run(ctx context.Context, in io.Reader) error {
	h.sw.Logger = h.Logger
	h.transport.HTTP = h.Client
	h.transport.Logger = h.Logger

	go func() {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			msg := append([]byte(nil), line...)
			h.loop.Post(func() { h.HandleMessage(msg) })
		}
		if err := sc.Err(); err != nil {
			h.logf("host: failed reading messages: %s", err)
		}
		h.loop.Post(h.closeInput)
	}()

	return h.loop.Run(ctx)
}

// HandleMessage queues the job described by msg. It must run on the event
// loop. Malformed messages get ErrorReply.
func (h *Host) HandleMessage(msg []byte) {
	job, err := ParseJob(msg)
	if err != nil {
		h.logf("host: invalid message: %s", err)
		h.reply([]byte(ErrorReply))
		return
	}

	h.pending = append(h.pending, job)
	h.startNext()
}

func (h *Host) closeInput() {
	h.closing = true
	h.startNext()
}

// startNext launches the next queued job unless one is in progress.
func (h *Host) startNext() {
	if h.busy {
		return
	}
	if len(h.pending) == 0 {
		if h.closing {
			h.loop.Stop()
		}
		return
	}

	job := h.pending[0]
	h.pending[0] = nil
	h.pending = h.pending[1:]

	h.busy = true
	if err := h.sw.Create(h.tagFile, job); err != nil {
		// only possible if something else drives the switch
		h.busy = false
		h.logf("host: unable to start job %s: %s", job.ID, err)
		h.send(NewResult(job, nil))
		h.loop.Post(h.startNext)
	}
}

func (h *Host) jobDone() {
	h.busy = false
	h.startNext()
}

// tagFile is the worker flow for one job.
func (h *Host) tagFile(arg any) {
	job := arg.(*Job)

	// the last thing the flow does is hand the next job back to the loop
	defer h.loop.Post(h.jobDone)
	defer func() {
		if r := recover(); r != nil {
			h.logf("host: job %s crashed: %v", job.ID, r)
			h.send(NewResult(job, nil))
		}
	}()

	f := NewRangeFetcher(job.URL, h.newLoader, h.sw, h.Logger)
	s := NewStream(job.URL, job.Length, f,
		WithPrefixSize(h.PrefixSize),
		WithSuffixSize(h.SuffixSize),
		WithLogger(h.Logger),
	)
	defer s.Close()

	s.Precache()

	tags, err := ReadTags(s.Reader())
	if err != nil {
		h.logf("host: no tags for %s: %s", job.ID, err)
	}

	st := s.Stats()
	h.logf("host: job %s done, %d fetches (%d failed), %d bytes, %d cache hits",
		job.ID, st.Fetches, st.FetchErrors, st.BytesFetched, st.CacheHits)

	h.send(NewResult(job, tags))
}

func (h *Host) newLoader() URLLoader {
	return h.transport.NewLoader()
}

func (h *Host) send(res *Result) {
	buf, err := res.Encode()
	if err != nil {
		h.logf("host: failed to encode result for %s: %s", res.ID, err)
		buf = []byte(ErrorReply)
	}
	h.reply(buf)
}

func (h *Host) reply(msg []byte) {
	h.outLk.Lock()
	defer h.outLk.Unlock()

	if _, err := fmt.Fprintf(h.out, "%s\n", msg); err != nil {
		h.logf("host: failed to write reply: %s", err)
	}
}
