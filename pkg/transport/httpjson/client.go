package httpjson

import (
    "bytes"
    "context"
    "crypto/tls"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/amirimatin/go-clustermeta/pkg/consensus"
    "github.com/amirimatin/go-clustermeta/pkg/transport"
)

const attempts = 3

// Client calls the management API of other nodes. Connection failures and
// 5xx answers are retried with exponential backoff; other answers are not.
type Client struct {
    httpc     *http.Client
    transport *http.Transport
    isTLS     bool
}

// NewClient returns a Client whose requests time out after timeout (3s when
// zero).
func NewClient(timeout time.Duration) *Client {
    if timeout <= 0 { timeout = 3 * time.Second }
    tr := &http.Transport{}
    return &Client{httpc: &http.Client{Timeout: timeout, Transport: tr}, transport: tr}
}

// UseTLS switches to https with cfg.
func (c *Client) UseTLS(cfg *tls.Config) *Client {
    c.transport.TLSClientConfig = cfg
    c.isTLS = cfg != nil
    return c
}

func (c *Client) GetStatus(ctx context.Context, addr string) (transport.Status, error) {
    var st transport.Status
    b, err := c.do(ctx, http.MethodGet, addr, "/status", "", nil)
    if err != nil { return st, err }
    if err := json.Unmarshal(b, &st); err != nil { return st, fmt.Errorf("httpjson: decoding status: %w", err) }
    return st, nil
}

// GetMetadata returns the canonical JSON metadata applied on addr.
func (c *Client) GetMetadata(ctx context.Context, addr string) ([]byte, error) {
    return c.do(ctx, http.MethodGet, addr, "/metadata", "", nil)
}

func (c *Client) PutIndex(ctx context.Context, addr, name string, body []byte) error {
    _, err := c.do(ctx, http.MethodPut, addr, "/indices/"+url.PathEscape(name), "application/json", body)
    return err
}

func (c *Client) DeleteIndex(ctx context.Context, addr, name string) error {
    _, err := c.do(ctx, http.MethodDelete, addr, "/indices/"+url.PathEscape(name), "", nil)
    return err
}

// PostJoin returns the decoded answer even when the node refused the join.
func (c *Client) PostJoin(ctx context.Context, addr string, req transport.JoinRequest) (transport.JoinResponse, error) {
    var out transport.JoinResponse
    err := c.post(ctx, addr, "/join", req, &out)
    return out, err
}

func (c *Client) PostLeave(ctx context.Context, addr string, req transport.LeaveRequest) (transport.LeaveResponse, error) {
    var out transport.LeaveResponse
    err := c.post(ctx, addr, "/leave", req, &out)
    return out, err
}

func (c *Client) post(ctx context.Context, addr, path string, in, out any) error {
    body, err := json.Marshal(in)
    if err != nil { return err }
    b, err := c.do(ctx, http.MethodPost, addr, path, "application/json", body)
    if err != nil {
        // 4xx answers still carry a JSON body
        if len(b) > 0 { _ = json.Unmarshal(b, out) }
        return err
    }
    return json.Unmarshal(b, out)
}

func (c *Client) do(ctx context.Context, method, addr, path, contentType string, body []byte) ([]byte, error) {
    target := c.url(addr, path)
    var lastErr error
    for attempt := 0; attempt < attempts; attempt++ {
        req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
        if err != nil { return nil, err }
        if contentType != "" { req.Header.Set("Content-Type", contentType) }
        if transport.IsForwarded(ctx) { req.Header.Set(transport.ForwardedHeader, "1") }
        resp, err := c.httpc.Do(req)
        if err == nil {
            b, rerr := io.ReadAll(resp.Body)
            resp.Body.Close()
            switch {
            case rerr != nil:
                lastErr = rerr
            case resp.StatusCode < 300:
                return b, nil
            default:
                lastErr = remoteError(resp.StatusCode, b)
                if resp.StatusCode < 500 { return b, lastErr }
            }
        } else {
            lastErr = err
        }
        if attempt == attempts-1 { break }
        select {
        case <-ctx.Done():
            return nil, ctx.Err()
        case <-time.After(time.Duration(100*(1<<attempt)) * time.Millisecond):
        }
    }
    return nil, lastErr
}

func (c *Client) url(addr, path string) string {
    scheme := "http"
    if c.isTLS { scheme = "https" }
    return scheme + "://" + addr + path
}

// remoteError decodes {"error": "..."} bodies; 421 maps to
// consensus.ErrNotLeader.
func remoteError(code int, b []byte) error {
    msg := strings.TrimSpace(string(b))
    var eb errorBody
    if json.Unmarshal(b, &eb) == nil && eb.Error != "" { msg = eb.Error }
    if code == http.StatusMisdirectedRequest { return fmt.Errorf("%w: %s", consensus.ErrNotLeader, msg) }
    return &transport.StatusError{Code: code, Message: msg}
}

var _ transport.Client = (*Client)(nil)
