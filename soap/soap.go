package soap

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/cheyinl/typograf/internal/logging"
)

const (
	DefaultHost = "typograf.artlebedev.ru"
	DefaultPort = 80
	DefaultPath = "/webservices/typograf.asmx"
)

// Endpoint is where ProcessText requests are sent.
type Endpoint struct {
	Host string
	Port int
	Path string
}

// DefaultEndpoint returns the public typograf service endpoint.
func DefaultEndpoint() Endpoint {
	return Endpoint{Host: DefaultHost, Port: DefaultPort, Path: DefaultPath}
}

// Address returns host:port for dialling.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.port()))
}

func (e Endpoint) port() int {
	if e.Port == 0 {
		return DefaultPort
	}
	return e.Port
}

func (e Endpoint) path() string {
	if e.Path == "" {
		return DefaultPath
	}
	return e.Path
}

func (e Endpoint) hostHeader() string {
	if e.port() == DefaultPort {
		return e.Host
	}
	return e.Address()
}

type options struct {
	transport   Transport
	extractor   Extractor
	logger      *slog.Logger
	dialTimeout time.Duration
	readTimeout time.Duration
}

var defaultOptions = options{
	extractor: MarkerExtractor{},
}

// A Option sets options such as the transport, extractor or logger.
type Option func(*options)

// WithTransport is an Option to replace the TCP transport.
// It cannot be used with WithDialTimeout or WithReadTimeout.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithExtractor is an Option to set how the result is pulled from the response
func WithExtractor(e Extractor) Option {
	return func(o *options) {
		o.extractor = e
	}
}

// WithLogger is an Option to set the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDialTimeout is an Option to bound connection setup. Zero means no limit.
func WithDialTimeout(t time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = t
	}
}

// WithReadTimeout is an Option to put a deadline on the whole exchange once
// connected. Zero, the default, reads until the peer closes however long
// that takes.
func WithReadTimeout(t time.Duration) Option {
	return func(o *options) {
		o.readTimeout = t
	}
}

// Client is a typograf ProcessText client. It opens one connection per call.
type Client struct {
	endpoint Endpoint
	opts     *options
}

// NewClient creates new client instance
func NewClient(endpoint Endpoint, opt ...Option) *Client {
	opts := defaultOptions
	for _, o := range opt {
		o(&opts)
	}
	if opts.transport == nil {
		opts.transport = &TCPTransport{
			DialTimeout: opts.dialTimeout,
			ReadTimeout: opts.readTimeout,
		}
	}
	if opts.extractor == nil {
		opts.extractor = MarkerExtractor{}
	}
	if opts.logger == nil {
		opts.logger = logging.Nop()
	}
	return &Client{
		endpoint: endpoint,
		opts:     &opts,
	}
}

// Endpoint returns the endpoint the client talks to.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// ProcessText sends text for correction and returns the call record. The
// corrected text is CallResult.Text. Errors are *TransportError or
// *MalformedResponseError; the CallResult is returned with either.
func (c *Client) ProcessText(ctx context.Context, text string, ro RequestOptions) (*CallResult, error) {
	callID := newCallID("PT-")
	log := c.opts.logger.With("call_id", callID)

	req := BuildRequest(c.endpoint, text, ro)
	res := &CallResult{
		CallID:         callID,
		Address:        c.endpoint.Address(),
		RequestContent: splitContent(req),
	}

	log.Debug("sending ProcessText", "address", res.Address, "request_bytes", len(req), "encoding", encodingName(ro))
	res.InvokeAt = time.Now()
	raw, err := c.opts.transport.RoundTrip(ctx, res.Address, req)
	res.ReturnAt = time.Now()
	if err != nil {
		log.Debug("transport failed", "error", err, "elapsed", res.RoundTripDuration())
		return res, err
	}
	res.ResponseContent = splitContent(raw)
	log.Debug("response received", "response_bytes", len(raw), "status", res.ResponseContent.Status(), "elapsed", res.RoundTripDuration())

	out, err := c.opts.extractor.Extract(string(raw))
	res.DecodedAt = time.Now()
	if err != nil {
		log.Debug("extraction failed", "error", err)
		return res, err
	}
	res.Text = out
	log.Debug("result extracted", "result_bytes", len(out))
	return res, nil
}
