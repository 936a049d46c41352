package soap

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheyinl/typograf/internal/logging"
	"github.com/cheyinl/typograf/soap/soaptest"
)

func serverEndpoint(s *soaptest.Server) Endpoint {
	return Endpoint{Host: s.Host(), Port: s.Port(), Path: DefaultPath}
}

func TestEndpoint(t *testing.T) {
	ep := DefaultEndpoint()
	assert.Equal(t, "typograf.artlebedev.ru:80", ep.Address())
	assert.Equal(t, "typograf.artlebedev.ru", ep.hostHeader())

	ep = Endpoint{Host: "::1", Port: 8080}
	assert.Equal(t, "[::1]:8080", ep.Address())
	assert.Equal(t, DefaultPath, ep.path())

	assert.Equal(t, "example.org:80", Endpoint{Host: "example.org"}.Address())
	assert.Equal(t, ep, NewClient(ep).Endpoint())
}

func TestClient_ProcessText(t *testing.T) {
	srv := soaptest.NewServer(soaptest.Respond("«Ёлки» — палки"))
	defer srv.Close()

	client := NewClient(serverEndpoint(srv))
	res, err := client.ProcessText(context.Background(), `"Ёлки" - палки`, DefaultRequestOptions())
	require.NoError(t, err)

	assert.Equal(t, "«Ёлки» — палки", res.Text)
	assert.Equal(t, srv.Addr(), res.Address)
	assert.Equal(t, "HTTP/1.1 200 OK", res.ResponseContent.Status())
	assert.Contains(t, res.RequestContent.Body, "<text>\"Ёлки\" - палки</text>")
	assert.NotEmpty(t, res.CallID)
	assert.False(t, res.InvokeAt.IsZero())
	assert.False(t, res.DecodedAt.Before(res.ReturnAt))

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	require.NoError(t, req.Err)
	assert.Equal(t, "POST /webservices/typograf.asmx HTTP/1.1", req.RequestLine)
	assert.Equal(t, srv.Addr(), req.Header.Get("Host"))
	assert.Equal(t, "text/xml", req.Header.Get("Content-Type"))
	assert.Equal(t, `"http://typograf.artlebedev.ru/webservices/ProcessText"`, req.Header.Get("SOAPAction"))
	assert.Equal(t, strconv.Itoa(len(req.Body)), req.Header.Get("Content-Length"))
	require.NotNil(t, req.Doc, "request body is not well-formed XML")
	assert.Equal(t, `"Ёлки" - палки`, req.Param("text"))
	assert.Equal(t, "4", req.Param("entityType"))
	assert.Equal(t, "0", req.Param("useBr"))
	assert.Equal(t, "0", req.Param("useP"))
	assert.Equal(t, "3", req.Param("maxNobr"))
}

func TestClient_ProcessText_Echo(t *testing.T) {
	srv := soaptest.NewServer(soaptest.Echo())
	defer srv.Close()

	text := "if a < b && b > c { return }\nвторая строка"
	res, err := NewClient(serverEndpoint(srv)).ProcessText(context.Background(), text, DefaultRequestOptions())
	require.NoError(t, err)
	assert.Equal(t, text, res.Text)
}

func TestClient_ProcessText_Options(t *testing.T) {
	srv := soaptest.NewServer(soaptest.Respond("ok"))
	defer srv.Close()

	opts := RequestOptions{Encoding: "windows-1251", EntityType: 2, UseBr: 1, UseP: 1, MaxNobr: 0}
	_, err := NewClient(serverEndpoint(srv)).ProcessText(context.Background(), "Привет", opts)
	require.NoError(t, err)

	req := srv.Requests()[0]
	require.NotNil(t, req.Doc)
	assert.Equal(t, "2", req.Param("entityType"))
	assert.Equal(t, "1", req.Param("useBr"))
	assert.Equal(t, "1", req.Param("useP"))
	assert.Equal(t, "0", req.Param("maxNobr"))
	assert.Equal(t, "Привет", req.Param("text"))
	assert.True(t, bytes.Contains(req.Body, []byte("<text>\xcf\xf0\xe8\xe2\xe5\xf2</text>")))
	assert.Equal(t, strconv.Itoa(len(req.Body)), req.Header.Get("Content-Length"))
}

func TestClient_ProcessText_Malformed(t *testing.T) {
	srv := soaptest.NewServer(soaptest.RespondRaw(
		soaptest.HTTPResponse(500, "Internal Server Error", soaptest.FaultEnvelope("soap:Server", "boom"))))
	defer srv.Close()

	res, err := NewClient(serverEndpoint(srv)).ProcessText(context.Background(), "x", DefaultRequestOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)

	var te *TransportError
	assert.False(t, errors.As(err, &te))

	require.NotNil(t, res)
	assert.Empty(t, res.Text)
	assert.Equal(t, "HTTP/1.1 500 Internal Server Error", res.ResponseContent.Status())
}

func TestClient_ProcessText_TreeExtractor(t *testing.T) {
	srv := soaptest.NewServer(soaptest.Respond("a &amp; b"))
	defer srv.Close()

	client := NewClient(serverEndpoint(srv), WithExtractor(TreeExtractor{}))
	res, err := client.ProcessText(context.Background(), "x", DefaultRequestOptions())
	require.NoError(t, err)
	assert.Equal(t, "a &amp; b", res.Text)
}

func TestClient_ProcessText_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	client := NewClient(Endpoint{Host: "127.0.0.1", Port: addr.Port}, WithDialTimeout(time.Second))
	res, err := client.ProcessText(context.Background(), "x", DefaultRequestOptions())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedResponse)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "dial", te.Op)
	assert.Equal(t, addr.String(), te.Addr)
	require.NotNil(t, res)
	assert.Empty(t, res.ResponseContent.Head)
}

func TestClient_ProcessText_ReadTimeout(t *testing.T) {
	srv := soaptest.NewServer(soaptest.Respond("never finished"), soaptest.HoldOpen())
	defer srv.Close()

	client := NewClient(serverEndpoint(srv), WithReadTimeout(200*time.Millisecond))
	_, err := client.ProcessText(context.Background(), "x", DefaultRequestOptions())
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "read", te.Op)

	var ne net.Error
	require.True(t, errors.As(err, &ne))
	assert.True(t, ne.Timeout())
}

type stubTransport struct {
	address string
	request []byte
	resp    string
	err     error
}

func (s *stubTransport) RoundTrip(_ context.Context, address string, request []byte) ([]byte, error) {
	s.address = address
	s.request = request
	return []byte(s.resp), s.err
}

func TestClient_WithTransport(t *testing.T) {
	stub := &stubTransport{resp: "<ProcessTextResult>done</ProcessTextResult>"}
	var logs bytes.Buffer
	logger := logging.New(logging.Config{Level: slog.LevelDebug, Output: &logs})

	client := NewClient(DefaultEndpoint(), WithTransport(stub), WithLogger(logger))
	res, err := client.ProcessText(context.Background(), "todo", DefaultRequestOptions())
	require.NoError(t, err)

	assert.Equal(t, "done", res.Text)
	assert.Equal(t, "typograf.artlebedev.ru:80", stub.address)
	assert.Equal(t, BuildRequest(DefaultEndpoint(), "todo", DefaultRequestOptions()), stub.request)
	assert.Contains(t, logs.String(), "call_id="+res.CallID)
	assert.Contains(t, logs.String(), "msg=\"result extracted\"")
}

func TestClient_TransportErrorPassthrough(t *testing.T) {
	want := &TransportError{Op: "write", Addr: "x:80", Err: errors.New("broken pipe")}
	client := NewClient(DefaultEndpoint(), WithTransport(&stubTransport{err: want}))

	_, err := client.ProcessText(context.Background(), "x", DefaultRequestOptions())
	assert.Same(t, want, err)
	assert.Equal(t, "write x:80: broken pipe", err.Error())
}

func TestNewCallID(t *testing.T) {
	a, b := newCallID("PT-"), newCallID("PT-")
	assert.Regexp(t, `^PT-[0-9a-f]{24}$`, a)
	assert.NotEqual(t, a, b)
}
