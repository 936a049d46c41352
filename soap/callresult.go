package soap

import (
	"strings"
	"time"
)

// CallContent is one side of the exchange, split at the first blank line.
// No HTTP framing is interpreted.
type CallContent struct {
	Head string
	Body string
}

// Status returns the first line of Head, e.g. "HTTP/1.1 200 OK".
func (c CallContent) Status() string {
	line, _, _ := strings.Cut(c.Head, "\n")
	return strings.TrimRight(line, "\r")
}

type CallResult struct {
	CallID          string
	Address         string
	RequestContent  CallContent
	ResponseContent CallContent
	Text            string
	InvokeAt        time.Time
	ReturnAt        time.Time
	DecodedAt       time.Time
}

// RoundTripDuration is the time spent in the transport.
func (r *CallResult) RoundTripDuration() time.Duration {
	return r.ReturnAt.Sub(r.InvokeAt)
}

func splitContent(raw []byte) CallContent {
	head, body := splitHead(string(raw))
	return CallContent{Head: head, Body: body}
}

// splitHead cuts raw at the first CRLF CRLF (or bare LF LF) separator. Input
// that already starts like XML has no head.
func splitHead(raw string) (head, body string) {
	if strings.HasPrefix(strings.TrimSpace(raw), "<") {
		return "", raw
	}
	if h, b, ok := strings.Cut(raw, "\r\n\r\n"); ok {
		return h, b
	}
	if h, b, ok := strings.Cut(raw, "\n\n"); ok {
		return h, b
	}
	return raw, ""
}
