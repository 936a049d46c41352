// Package soaptest provides an in-process stand-in for the typograf service.
//
// The server speaks just enough HTTP to read one request per connection,
// framed by its Content-Length, and then writes a canned response and closes
// the connection, which is how the client finds the end of the reply.
package soaptest

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"

	"github.com/beevik/etree"

	"github.com/cheyinl/typograf/internal/charset"
)

// Request is one request as the server received it.
type Request struct {
	RequestLine string
	Header      textproto.MIMEHeader
	Body        []byte
	// Doc is Body parsed as XML, nil if it did not parse.
	Doc *etree.Document
	// Err is set when the request could not be read.
	Err error
}

// Param returns the text of the first element named name in the request body.
func (r *Request) Param(name string) string {
	if r.Doc == nil {
		return ""
	}
	el := r.Doc.FindElement("//" + name)
	if el == nil {
		return ""
	}
	return el.Text()
}

// Handler returns the raw bytes to send back.
type Handler func(*Request) string

// Server is a fake typograf endpoint listening on the loopback interface.
type Server struct {
	Listener net.Listener

	handler  Handler
	holdOpen bool
	done     chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	requests []*Request
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// HoldOpen keeps each connection open after the response until Close, like a
// peer that never signals the end of its reply.
func HoldOpen() ServerOption {
	return func(s *Server) {
		s.holdOpen = true
	}
}

// NewServer starts a server answering every connection with h.
func NewServer(h Handler, opts ...ServerOption) *Server {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(fmt.Sprintf("soaptest: failed to listen on a port: %v", err))
	}
	s := &Server{
		Listener: ln,
		handler:  h,
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.wg.Add(1)
	go s.serve()
	return s
}

// Host returns the listening host.
func (s *Server) Host() string {
	return s.Listener.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listening port.
func (s *Server) Port() int {
	return s.Listener.Addr().(*net.TCPAddr).Port
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return s.Listener.Addr().String()
}

// Requests returns the requests received so far.
func (s *Server) Requests() []*Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Request(nil), s.requests...)
}

// Close stops the listener and waits for open connections to finish.
func (s *Server) Close() {
	close(s.done)
	_ = s.Listener.Close()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		_ = conn.Close()
	}()

	req := readRequest(bufio.NewReader(conn))
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	_, _ = io.WriteString(conn, s.handler(req))
	if s.holdOpen {
		<-s.done
	}
}

func readRequest(br *bufio.Reader) *Request {
	tp := textproto.NewReader(br)
	req := &Request{}

	line, err := tp.ReadLine()
	if err != nil {
		req.Err = err
		return req
	}
	req.RequestLine = line

	req.Header, err = tp.ReadMIMEHeader()
	if err != nil {
		req.Err = err
		return req
	}

	n, err := strconv.Atoi(req.Header.Get("Content-Length"))
	if err != nil {
		req.Err = fmt.Errorf("content-length: %w", err)
		return req
	}
	req.Body = make([]byte, n)
	if _, err := io.ReadFull(br, req.Body); err != nil {
		req.Err = err
		return req
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(req.Body); err == nil {
		req.Doc = doc
	}
	return req
}

// charsetReader decodes bodies declared in a non-UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := charset.Lookup(label)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Envelope returns a ProcessTextResponse SOAP body carrying result.
func Envelope(result string) string {
	return `<?xml version="1.0" encoding="utf-8"?>` +
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema">` +
		`<soap:Body><ProcessTextResponse xmlns="http://typograf.artlebedev.ru/webservices/">` +
		`<ProcessTextResult>` + escaper.Replace(result) + `</ProcessTextResult>` +
		`</ProcessTextResponse></soap:Body></soap:Envelope>`
}

// FaultEnvelope returns a SOAP 1.1 fault body.
func FaultEnvelope(code, message string) string {
	return `<?xml version="1.0" encoding="utf-8"?>` +
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap:Body><soap:Fault>` +
		`<faultcode>` + escaper.Replace(code) + `</faultcode>` +
		`<faultstring>` + escaper.Replace(message) + `</faultstring>` +
		`</soap:Fault></soap:Body></soap:Envelope>`
}

// HTTPResponse frames body as an HTTP/1.1 response with the given status.
func HTTPResponse(status int, reason, body string) string {
	return fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Type: text/xml; charset=utf-8\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		status, reason, len(body), body)
}

// Respond answers every request with a 200 carrying result.
func Respond(result string) Handler {
	return func(*Request) string {
		return HTTPResponse(200, "OK", Envelope(result))
	}
}

// RespondRaw answers every request with raw, unframed.
func RespondRaw(raw string) Handler {
	return func(*Request) string {
		return raw
	}
}

// Echo answers with the text it was sent.
func Echo() Handler {
	return func(r *Request) string {
		return HTTPResponse(200, "OK", Envelope(r.Param("text")))
	}
}
