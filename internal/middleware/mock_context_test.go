package middleware_test

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"mime/multipart"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/sports-gateway/internal/handlers"
)

var errMultipartNotSupported = errors.New("multipart not supported in mock")

func newTestAPI() huma.API {
	handlers.UseEnvelopeErrors()

	return humachi.New(chi.NewMux(), huma.DefaultConfig("Test", "1.0.0"))
}

// mockHumaContext implements huma.Context for testing.
type mockHumaContext struct {
	ctx        context.Context
	headers    map[string]string
	params     map[string]string
	response   map[string]string
	remoteAddr string
	written    []byte
	statusCode int
	method     string
	operation  *huma.Operation
}

func newMockHumaContext() *mockHumaContext {
	return &mockHumaContext{
		ctx:      context.Background(),
		headers:  make(map[string]string),
		params:   make(map[string]string),
		response: make(map[string]string),
		method:   "GET",
	}
}

func (m *mockHumaContext) Operation() *huma.Operation                 { return m.operation }
func (m *mockHumaContext) Context() context.Context                   { return m.ctx }
func (m *mockHumaContext) TLS() *tls.ConnectionState                  { return nil }
func (m *mockHumaContext) Version() huma.ProtoVersion                 { return huma.ProtoVersion{} }
func (m *mockHumaContext) Method() string                             { return m.method }
func (m *mockHumaContext) Host() string                               { return "localhost" }
func (m *mockHumaContext) RemoteAddr() string                         { return m.remoteAddr }
func (m *mockHumaContext) URL() url.URL                               { return url.URL{} }
func (m *mockHumaContext) Param(name string) string                   { return m.params[name] }
func (m *mockHumaContext) Query(_ string) string                      { return "" }
func (m *mockHumaContext) Header(name string) string                  { return m.headers[name] }
func (m *mockHumaContext) EachHeader(_ func(name, value string))      {}
func (m *mockHumaContext) BodyReader() io.Reader                      { return nil }
func (m *mockHumaContext) SetReadDeadline(_ time.Time) error          { return nil }
func (m *mockHumaContext) SetStatus(code int)                         { m.statusCode = code }
func (m *mockHumaContext) Status() int                                { return m.statusCode }
func (m *mockHumaContext) AppendHeader(name, value string)            { m.response[name] = value }
func (m *mockHumaContext) SetHeader(name, value string)               { m.response[name] = value }
func (m *mockHumaContext) BodyWriter() io.Writer                      { return &mockBodyWriter{ctx: m} }
func (m *mockHumaContext) GetMultipartForm() (*multipart.Form, error) { return nil, errMultipartNotSupported }

type mockBodyWriter struct {
	ctx *mockHumaContext
}

func (w *mockBodyWriter) Write(p []byte) (n int, err error) {
	w.ctx.written = append(w.ctx.written, p...)

	return len(p), nil
}

type recordingMetrics struct {
	rateLimited int
	rejections  []string
	observed    []observation
}

type observation struct {
	endpoint string
	status   int
	cacheHit bool
}

func (m *recordingMetrics) ObserveRequest(endpoint string, status int, cacheHit bool, _ time.Duration) {
	m.observed = append(m.observed, observation{endpoint: endpoint, status: status, cacheHit: cacheHit})
}

func (m *recordingMetrics) RateLimited() { m.rateLimited++ }

func (m *recordingMetrics) AuthRejected(reason string) { m.rejections = append(m.rejections, reason) }
