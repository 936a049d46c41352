package soap

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/cheyinl/typograf/internal/charset"
)

const (
	// SOAPMIMEType is sent as Content-Type.
	SOAPMIMEType = "text/xml"

	XMLNsSoapEnv = "http://schemas.xmlsoap.org/soap/envelope/"
	XMLNsXSI     = "http://www.w3.org/2001/XMLSchema-instance"
	XMLNsXSD     = "http://www.w3.org/2001/XMLSchema"

	// ServiceNamespace is the ProcessText namespace. It names the service,
	// not the host dialled, so it stays fixed when the endpoint changes.
	ServiceNamespace = "http://typograf.artlebedev.ru/webservices/"
	// ProcessTextAction is the SOAPAction header value, unquoted.
	ProcessTextAction = ServiceNamespace + "ProcessText"
)

// RequestOptions are the ProcessText formatting knobs. Values are sent as
// decimal text and never range checked; the service rejects bad codes.
type RequestOptions struct {
	Encoding   string
	EntityType int
	UseBr      int
	UseP       int
	MaxNobr    int
}

// DefaultRequestOptions returns the service defaults.
func DefaultRequestOptions() RequestOptions {
	return RequestOptions{
		Encoding:   charset.UTF8,
		EntityType: 4,
		UseBr:      0,
		UseP:       0,
		MaxNobr:    3,
	}
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape makes text safe to embed as XML character data.
func Escape(text string) string {
	return escaper.Replace(text)
}

// Unescape reverses Escape with three sequential passes: &amp; first, then
// &lt;, then &gt;.
func Unescape(text string) string {
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	return strings.ReplaceAll(text, "&gt;", ">")
}

func encodingName(opts RequestOptions) string {
	if opts.Encoding == "" {
		return charset.UTF8
	}
	return opts.Encoding
}

// BuildEnvelope serializes the ProcessText SOAP 1.1 envelope and encodes it
// in opts.Encoding.
func BuildEnvelope(text string, opts RequestOptions) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="`)
	b.WriteString(encodingName(opts))
	b.WriteString("\"?>\n")
	b.WriteString(`<soap:Envelope xmlns:xsi="` + XMLNsXSI + `" xmlns:xsd="` + XMLNsXSD + `" xmlns:soap="` + XMLNsSoapEnv + "\">\n")
	b.WriteString("  <soap:Body>\n")
	b.WriteString(`    <ProcessText xmlns="` + ServiceNamespace + "\">\n")
	writeElement(&b, "text", Escape(text))
	writeElement(&b, "entityType", strconv.Itoa(opts.EntityType))
	writeElement(&b, "useBr", strconv.Itoa(opts.UseBr))
	writeElement(&b, "useP", strconv.Itoa(opts.UseP))
	writeElement(&b, "maxNobr", strconv.Itoa(opts.MaxNobr))
	b.WriteString("    </ProcessText>\n")
	b.WriteString("  </soap:Body>\n")
	b.WriteString("</soap:Envelope>")
	return charset.EncodeXML(encodingName(opts), b.String())
}

func writeElement(b *strings.Builder, name, value string) {
	b.WriteString("      <")
	b.WriteString(name)
	b.WriteString(">")
	b.WriteString(value)
	b.WriteString("</")
	b.WriteString(name)
	b.WriteString(">\n")
}

// BuildRequest wraps the envelope in an HTTP/1.1 POST for ep. Content-Length
// is the byte length of the encoded envelope.
func BuildRequest(ep Endpoint, text string, opts RequestOptions) []byte {
	body := BuildEnvelope(text, opts)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "POST %s HTTP/1.1\r\n", ep.path())
	fmt.Fprintf(&buf, "Host: %s\r\n", ep.hostHeader())
	fmt.Fprintf(&buf, "Content-Type: %s\r\n", SOAPMIMEType)
	fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(body))
	fmt.Fprintf(&buf, "SOAPAction: %q\r\n", ProcessTextAction)
	buf.WriteString("\r\n")
	buf.Write(body)
	return buf.Bytes()
}
