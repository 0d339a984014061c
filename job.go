package remotetag

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorReply is sent back verbatim for inbound messages that cannot be
// understood.
const ErrorReply = "Error"

var errMalformedJob = errors.New("malformed job")

// Job is one inbound tagging request.
type Job struct {
	URL      string `json:"url"`
	Length   int64  `json:"length"`
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// Result is the reply for a Job. Title, Artist and Album are only present
// when tags were found.
type Result struct {
	ID       string  `json:"id"`
	Filename string  `json:"filename"`
	Title    *string `json:"title,omitempty"`
	Artist   *string `json:"artist,omitempty"`
	Album    *string `json:"album,omitempty"`
}

// ParseJob decodes an inbound message.
func ParseJob(msg []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(msg, &j); err != nil {
		return nil, err
	}
	if j.URL == "" || j.Length < 0 {
		return nil, errMalformedJob
	}
	return &j, nil
}

// NewResult builds the reply for j. t may be nil when no tags were found.
func NewResult(j *Job, t *Tags) *Result {
	res := &Result{
		ID:       j.ID,
		Filename: j.Filename,
	}
	if t != nil {
		res.Title = &t.Title
		res.Artist = &t.Artist
		res.Album = &t.Album
	}
	return res
}

// Encode returns the JSON encoding of r.
func (r *Result) Encode() ([]byte, error) {
	return json.Marshal(r)
}
