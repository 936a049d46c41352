package soap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	wsdl "github.com/hooklift/gowsdl/soap"
)

const (
	ResultOpenTag  = "<ProcessTextResult>"
	ResultCloseTag = "</ProcessTextResult>"
)

// ErrMalformedResponse matches every *MalformedResponseError.
var ErrMalformedResponse = errors.New("malformed response")

// Extractor pulls the corrected text out of a raw response.
type Extractor interface {
	Extract(raw string) (string, error)
}

// MalformedResponseError means the peer answered, but not with a
// ProcessTextResult.
type MalformedResponseError struct {
	Reason string
	// Status is the HTTP status line, if the response had one.
	Status string
	// Fault is set when the body carried a SOAP fault.
	Fault *wsdl.SOAPFault
}

func (e *MalformedResponseError) Error() string {
	var b strings.Builder
	b.WriteString("malformed response: ")
	b.WriteString(e.Reason)
	if e.Status != "" {
		fmt.Fprintf(&b, " (%s)", e.Status)
	}
	if e.Fault != nil {
		fmt.Fprintf(&b, ": soap fault %s: %s", e.Fault.Code, e.Fault.Error())
	}
	return b.String()
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func (e *MalformedResponseError) Unwrap() error {
	if e.Fault == nil {
		return nil
	}
	return e.Fault
}

// MarkerExtractor finds the result by literal search for the
// ProcessTextResult tags after unescaping the whole response. It never parses
// XML on the success path.
type MarkerExtractor struct{}

func (MarkerExtractor) Extract(raw string) (string, error) {
	s := Unescape(raw)

	open := strings.Index(s, ResultOpenTag)
	if open < 0 {
		return "", malformed(raw, "missing "+ResultOpenTag)
	}
	start := open + len(ResultOpenTag)

	end := strings.Index(s, ResultCloseTag)
	if end < 0 {
		return "", malformed(raw, "missing "+ResultCloseTag)
	}
	if end < start {
		return "", malformed(raw, ResultCloseTag+" before "+ResultOpenTag)
	}
	return s[start:end], nil
}

func malformed(raw, reason string) *MalformedResponseError {
	head, body := splitHead(raw)
	return &MalformedResponseError{
		Reason: reason,
		Status: CallContent{Head: head}.Status(),
		Fault:  findFault(body),
	}
}

// findFault returns the SOAP 1.1 or 1.2 fault in body, or nil.
func findFault(body string) *wsdl.SOAPFault {
	doc, err := parseBody(body)
	if err != nil {
		return nil
	}
	fault := findElement(doc, "Fault")
	if fault == nil {
		return nil
	}

	f := &wsdl.SOAPFault{
		Code:   childText(fault, "faultcode"),
		String: childText(fault, "faultstring"),
		Actor:  childText(fault, "faultactor"),
	}
	// SOAP 1.2
	if f.Code == "" {
		f.Code = childText(fault, "Code/Value")
	}
	if f.String == "" {
		f.String = childText(fault, "Reason/Text")
	}
	return f
}

// parseBody reads body from its first '<' so stray bytes before the
// document (chunk sizes, whitespace) are skipped.
func parseBody(body string) (*etree.Document, error) {
	i := strings.IndexByte(body, '<')
	if i < 0 {
		return nil, errors.New("no xml in body")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(body[i:]); err != nil {
		return nil, err
	}
	return doc, nil
}

func findElement(doc *etree.Document, tag string) *etree.Element {
	if el := doc.FindElement("//" + tag); el != nil {
		return el
	}
	return doc.FindElement("//*[local-name()='" + tag + "']")
}

func childText(el *etree.Element, path string) string {
	c := el.FindElement(path)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}
