package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	// DataFileName is the crawl-record file inside the output directory.
	DataFileName = "data.jsonl"

	// LogFileName is the human-readable crawl log inside the output directory.
	LogFileName = "log.txt"

	markerBegin = "begin"
	markerEnd   = "end"
)

var (
	// ErrWriterClosed is returned by writes after Close.
	ErrWriterClosed = errors.New("record writer is closed")

	// ErrMalformedRecord is returned when a crawl-record line cannot be parsed.
	ErrMalformedRecord = errors.New("malformed crawl record")

	// ErrRecordNotFound is returned when a resumed run has no crawl-record file.
	ErrRecordNotFound = errors.New("crawl record file not found")

	// ErrOutputExists is returned when a fresh run would overwrite a crawl record.
	ErrOutputExists = errors.New("crawl record file already exists")
)

// Entry is the outcome of one completed address.
// Status is empty for a successful fetch and holds the failure descriptor
// otherwise.
type Entry struct {
	Address      string
	Title        string
	PaymentAddrs []string
	Status       string
}

// Success returns the entry of a page fetched with status 200.
func Success(address, title string, paymentAddrs []string) Entry {
	if paymentAddrs == nil {
		paymentAddrs = []string{}
	}
	return Entry{Address: address, Title: title, PaymentAddrs: paymentAddrs}
}

// Failure returns the entry of an address that yielded no page.
func Failure(address, status string) Entry {
	return Entry{Address: address, Status: status}
}

// ExceptionStatus is the status of a transport failure of the given kind.
func ExceptionStatus(kind string) string {
	return "Exception: " + kind
}

// HTTPErrorStatus is the status of a non-200 response.
func HTTPErrorStatus(code int) string {
	return "HTTP error: " + strconv.Itoa(code)
}

// OK reports whether the entry describes a successful fetch.
func (e Entry) OK() bool {
	return e.Status == ""
}

// successLine and statusLine are the two on-disk entry shapes.
type successLine struct {
	Address  string   `json:"address"`
	Title    string   `json:"title"`
	BTCAddrs []string `json:"btc_addrs"`
}

type statusLine struct {
	Address string `json:"address"`
	Status  string `json:"status"`
}

// MarshalJSON writes the success or status shape.
func (e Entry) MarshalJSON() ([]byte, error) {
	if !e.OK() {
		return json.Marshal(statusLine{Address: e.Address, Status: e.Status})
	}
	addrs := e.PaymentAddrs
	if addrs == nil {
		addrs = []string{}
	}
	return json.Marshal(successLine{Address: e.Address, Title: e.Title, BTCAddrs: addrs})
}

type beginMarker struct {
	Marker  string    `json:"marker"`
	RunID   string    `json:"run_id"`
	Started time.Time `json:"started"`
}

type endMarker struct {
	Marker   string    `json:"marker"`
	Finished time.Time `json:"finished"`
	Searched int       `json:"searched"`
}

// rawLine accepts every line shape for decoding.
type rawLine struct {
	Marker   string    `json:"marker"`
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Searched int       `json:"searched"`
	Address  string    `json:"address"`
	Title    *string   `json:"title"`
	BTCAddrs []string  `json:"btc_addrs"`
	Status   *string   `json:"status"`
}

func decodeLine(data []byte) (rawLine, error) {
	var raw rawLine
	if err := json.Unmarshal(data, &raw); err != nil {
		return raw, err
	}
	switch {
	case raw.Marker == markerBegin || raw.Marker == markerEnd:
		return raw, nil
	case raw.Marker != "":
		return raw, fmt.Errorf("unknown marker %q", raw.Marker)
	case raw.Address == "":
		return raw, errors.New("entry without address")
	case raw.Status == nil && raw.Title == nil:
		return raw, errors.New("entry without title or status")
	}
	return raw, nil
}

func (raw rawLine) entry() Entry {
	if raw.Status != nil {
		return Failure(raw.Address, *raw.Status)
	}
	return Success(raw.Address, *raw.Title, raw.BTCAddrs)
}
