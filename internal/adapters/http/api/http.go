package api

import (
	"context"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unicitynetwork/Boxy-Run/pkg/metrics"
)

// maxBodyBytes caps request bodies read by the net/http adapter.
const maxBodyBytes = 1 << 20

// Server adapts the Dispatcher to net/http and adds the operational routes
// that only exist when running as a long-lived process.
type Server struct {
	dispatcher   *Dispatcher
	statsHandler *StatsHandler
}

// NewServer creates a new API server over the dispatcher. stats may be nil,
// in which case GET /stats is not registered.
func NewServer(d *Dispatcher, stats StatsProvider) *Server {
	s := &Server{dispatcher: d}
	if stats != nil {
		s.statsHandler = NewStatsHandler(stats)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	if s.statsHandler != nil {
		mux.HandleFunc("/stats", s.statsHandler.HandleStats)
	}
	mux.Handle("/", s)
}

// ServeHTTP translates r into a Request, dispatches it and writes the Response.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		body = nil
	}
	resp := s.dispatcher.Handle(r.Context(), fromHTTP(r, body))
	writeResponse(w, resp)
}

func fromHTTP(r *http.Request, body []byte) Request {
	query := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	return Request{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   query,
		Headers: headers,
		Body:    body,
	}
}

func writeResponse(w http.ResponseWriter, resp Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(resp.Body)
}
