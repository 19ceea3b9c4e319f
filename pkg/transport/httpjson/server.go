package httpjson

import (
    "context"
    "crypto/tls"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log"
    "net"
    "net/http"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"
    "go.opentelemetry.io/otel/attribute"

    "github.com/amirimatin/go-clustermeta/pkg/consensus"
    "github.com/amirimatin/go-clustermeta/pkg/internal/logutil"
    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
    "github.com/amirimatin/go-clustermeta/pkg/observability/tracing"
    "github.com/amirimatin/go-clustermeta/pkg/transport"
    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

// maxBody bounds index documents accepted on PUT.
const maxBody = 16 << 20

// Server exposes a transport.Handler over HTTP:
//
//  GET    /status             local node status
//  GET    /healthz            liveness
//  GET    /metrics            Prometheus
//  GET    /metadata?format=   applied metadata (json, yaml or bson)
//  PUT    /indices/{name}     create or replace one index
//  DELETE /indices/{name}     remove one index
//  POST   /join, /leave       voter changes, leader only
type Server struct {
    bind   string
    logger *log.Logger
    tlsCfg *tls.Config

    mu   sync.Mutex
    srv  *http.Server
    addr string
}

// NewServer binds to the given TCP address (e.g. ":7700"); port 0 picks a
// free port, reported by Addr once started.
func NewServer(bind string, logger *log.Logger) *Server {
    if logger == nil { logger = log.Default() }
    return &Server{bind: bind, logger: logger}
}

// UseTLS serves HTTPS with cfg.
func (s *Server) UseTLS(cfg *tls.Config) *Server { s.tlsCfg = cfg; return s }

// Start listens and serves h until ctx is done or Stop is called.
func (s *Server) Start(ctx context.Context, h transport.Handler) error {
    mux := http.NewServeMux()
    mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
        writeJSON(w, http.StatusOK, h.Status(r.Context()))
    })
    mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    mux.Handle("GET /metrics", promhttp.Handler())
    mux.HandleFunc("GET /metadata", func(w http.ResponseWriter, r *http.Request) {
        ct := xcontent.JSON
        if f := r.URL.Query().Get("format"); f != "" {
            var err error
            if ct, err = xcontent.ParseContentType(f); err != nil { writeError(w, http.StatusBadRequest, err); return }
        }
        doc, err := h.Metadata(r.Context())
        if err == nil { doc, err = xcontent.FromJSON(ct, doc) }
        if err != nil { writeError(w, statusFor(err), err); return }
        w.Header().Set("Content-Type", ct.MediaType())
        _, _ = w.Write(doc)
    })
    mux.HandleFunc("PUT /indices/{name}", func(w http.ResponseWriter, r *http.Request) {
        name := r.PathValue("name")
        ctx, end := tracing.StartSpan(requestContext(r), "http.putIndex", attribute.String("index", name))
        defer end()
        doc, err := indexDocument(r, name)
        if err != nil { writeError(w, http.StatusBadRequest, err); return }
        if err := h.PutIndex(ctx, doc); err != nil {
            logutil.Warnf(s.logger, "put index [%s]: %v", name, err)
            writeError(w, statusFor(err), err)
            return
        }
        w.WriteHeader(http.StatusNoContent)
    })
    mux.HandleFunc("DELETE /indices/{name}", func(w http.ResponseWriter, r *http.Request) {
        name := r.PathValue("name")
        ctx, end := tracing.StartSpan(requestContext(r), "http.deleteIndex", attribute.String("index", name))
        defer end()
        if err := h.DeleteIndex(ctx, name); err != nil {
            logutil.Warnf(s.logger, "delete index [%s]: %v", name, err)
            writeError(w, statusFor(err), err)
            return
        }
        w.WriteHeader(http.StatusNoContent)
    })
    mux.HandleFunc("POST /join", func(w http.ResponseWriter, r *http.Request) {
        var req transport.JoinRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, err); return }
        ctx, end := tracing.StartSpan(r.Context(), "http.join", attribute.String("node", req.ID))
        defer end()
        resp, err := h.Join(ctx, req)
        if err != nil {
            if resp.Error == "" { resp.Error = err.Error() }
            writeJSON(w, http.StatusInternalServerError, resp)
            return
        }
        writeJSON(w, http.StatusOK, resp)
    })
    mux.HandleFunc("POST /leave", func(w http.ResponseWriter, r *http.Request) {
        var req transport.LeaveRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, err); return }
        ctx, end := tracing.StartSpan(r.Context(), "http.leave", attribute.String("node", req.ID))
        defer end()
        resp, err := h.Leave(ctx, req)
        if err != nil {
            if resp.Error == "" { resp.Error = err.Error() }
            writeJSON(w, http.StatusInternalServerError, resp)
            return
        }
        writeJSON(w, http.StatusOK, resp)
    })

    ln, err := net.Listen("tcp", s.bind)
    if err != nil { return fmt.Errorf("httpjson: listen %s: %w", s.bind, err) }
    if s.tlsCfg != nil { ln = tls.NewListener(ln, s.tlsCfg) }

    srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
    s.mu.Lock()
    s.srv, s.addr = srv, ln.Addr().String()
    s.mu.Unlock()

    go func() {
        <-ctx.Done()
        _ = s.Stop(context.Background())
    }()
    go func() {
        if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
            logutil.Errorf(s.logger, "httpjson: server error: %v", err)
        }
    }()
    return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.addr != "" { return s.addr }
    return s.bind
}

// Stop shuts the server down, waiting at most two seconds for requests.
func (s *Server) Stop(ctx context.Context) error {
    s.mu.Lock()
    srv := s.srv
    s.srv = nil
    s.mu.Unlock()
    if srv == nil { return nil }
    c, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    return srv.Shutdown(c)
}

func requestContext(r *http.Request) context.Context {
    if r.Header.Get(transport.ForwardedHeader) != "" { return transport.WithForwarded(r.Context()) }
    return r.Context()
}

// indexDocument reads the request body in any supported content type and
// wraps it as {"<name>": <body>}.
func indexDocument(r *http.Request, name string) ([]byte, error) {
    body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
    if err != nil { return nil, err }
    if len(body) > maxBody { return nil, fmt.Errorf("document larger than %d bytes", maxBody) }
    ct, ok := xcontent.FromMediaType(r.Header.Get("Content-Type"))
    if !ok { ct = xcontent.Detect(body) }
    doc, err := xcontent.ToJSON(ct, body)
    if err != nil { return nil, err }
    return xcontent.Marshal(xcontent.Object{{Name: name, Value: json.RawMessage(doc)}})
}

// statusFor maps handler errors onto HTTP status codes.
func statusFor(err error) int {
    var se *transport.StatusError
    switch {
    case errors.As(err, &se):
        return se.Code
    case errors.Is(err, consensus.ErrNotLeader):
        return http.StatusMisdirectedRequest
    case errors.Is(err, md.ErrStructure), errors.Is(err, md.ErrValue), errors.Is(err, md.ErrConfig):
        return http.StatusBadRequest
    case errors.Is(err, consensus.ErrNotStarted):
        return http.StatusServiceUnavailable
    case errors.Is(err, context.DeadlineExceeded):
        return http.StatusGatewayTimeout
    default:
        return http.StatusInternalServerError
    }
}

type errorBody struct {
    Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, err error) {
    writeJSON(w, code, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    _ = json.NewEncoder(w).Encode(v)
}

var _ transport.Server = (*Server)(nil)
