package remotetag

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func runHost(t *testing.T, h *Host, input string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Run(ctx, strings.NewReader(input)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestHostRunsJobs(t *testing.T) {
	song := taggedFile(300000, "Song", "Band", "Record")
	tagged := newRangeServer(song)
	defer tagged.Close()

	noise := newRangeServer(make([]byte, 5000))
	defer noise.Close()

	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	input := fmt.Sprintf(`{"url":%q,"length":%d,"id":"1","filename":"song.mp3"}
this is not json

{"url":%q,"length":5000,"id":"2","filename":"noise.bin"}
{"url":%q,"length":1000,"id":"3","filename":"gone.mp3"}
{"url":%q,"length":%d,"id":"4","filename":"again.mp3"}
`, tagged.URL, len(song), noise.URL, missing.URL+"/gone.mp3", tagged.URL, len(song))

	var out bytes.Buffer
	h := NewHost(&out)
	h.Logger = nil
	h.Client = &http.Client{Timeout: 5 * time.Second}

	runHost(t, h, input)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d replies, want 5:\n%s", len(lines), out.String())
	}

	var results []string
	errorReplies := 0
	for _, l := range lines {
		if l == ErrorReply {
			errorReplies++
			continue
		}
		results = append(results, l)
	}
	if errorReplies != 1 {
		t.Errorf("got %d error replies, want 1", errorReplies)
	}

	// jobs run in the order they arrived
	want := []string{
		`{"id":"1","filename":"song.mp3","title":"Song","artist":"Band","album":"Record"}`,
		`{"id":"2","filename":"noise.bin"}`,
		`{"id":"3","filename":"gone.mp3"}`,
		`{"id":"4","filename":"again.mp3","title":"Song","artist":"Band","album":"Record"}`,
	}
	if len(results) != len(want) {
		t.Fatalf("results = %v", results)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result %d = %s, want %s", i, results[i], want[i])
		}
	}

	// one request at a time, two per tagged file thanks to Precache
	if n := atomic.LoadInt32(&tagged.maxInFlight); n != 1 {
		t.Errorf("tagged server saw %d concurrent requests, want 1", n)
	}
	if n := len(tagged.requests()); n != 4 {
		t.Errorf("tagged server saw %d requests, want 4", n)
	}
	if n := len(noise.requests()); n != 1 {
		t.Errorf("noise server saw %d requests, want 1", n)
	}
}

func TestHostEmptyInput(t *testing.T) {
	var out bytes.Buffer
	h := NewHost(&out)
	h.Logger = nil

	runHost(t, h, "")

	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestHostRunTwice(t *testing.T) {
	h := NewHost(&bytes.Buffer{})
	h.Logger = nil

	runHost(t, h, "")
	if err := h.Run(context.Background(), strings.NewReader("")); err == nil {
		t.Error("second Run should fail")
	}
}

func TestHostLogs(t *testing.T) {
	server := newRangeServer(taggedFile(1000, "a", "b", "c"))
	defer server.Close()

	var logs bytes.Buffer
	diag := NewDiagWriter(&logs, 1024)

	h := NewHost(&bytes.Buffer{})
	h.Logger = log.New(diag, "", 0)

	runHost(t, h, fmt.Sprintf(`{"url":%q,"length":1000,"id":"x","filename":"x.mp3"}`, server.URL))
	diag.Close()

	for _, want := range []string{"stream: new stream", "Range: bytes=0-999", "Read: 1000/1000", "host: job x done"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("logs lack %q:\n%s", want, logs.String())
		}
	}
}

// blockingWriter blocks every Write until release is closed.
type blockingWriter struct {
	release chan struct{}
	buf     bytes.Buffer
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	<-w.release
	return w.buf.Write(p)
}

func TestDiagWriterNeverBlocks(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{})}
	d := NewDiagWriter(w, 4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			fmt.Fprintf(d, "message %d\n", i)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("DiagWriter.Write blocked")
	}

	if d.Dropped() == 0 {
		t.Error("expected dropped messages with a stuck writer")
	}

	close(w.release)
	d.Close()

	if !strings.Contains(w.buf.String(), "message 0\n") {
		t.Errorf("first message lost: %q", w.buf.String())
	}

	// writes after Close are dropped, not a panic
	before := d.Dropped()
	d.Write([]byte("late"))
	if d.Dropped() != before+1 {
		t.Error("write after Close not counted as dropped")
	}
}
