package dns

import (
    "context"
    "errors"
    "fmt"
    "net"
    "sort"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/amirimatin/go-clustermeta/pkg/discovery"
)

// DefaultPort is the management port assumed for A/AAAA answers.
const DefaultPort = 7700

// Options configure DNS seed discovery.
type Options struct {
    // Names are SRV names ("_meta._tcp.example.com"), hostnames, or literal
    // host:port pairs.
    Names []string
    // Port is used for A/AAAA answers. Defaults to DefaultPort.
    Port int
    // Refresh is how long a non-empty answer is reused. Defaults to 5s.
    Refresh time.Duration
    // Resolver defaults to net.DefaultResolver.
    Resolver *net.Resolver
}

// Resolver resolves Options.Names into seeds and caches the answer.
type Resolver struct {
    opts  Options
    mu    sync.Mutex
    last  time.Time
    cache []string
}

func New(opts Options) *Resolver {
    if opts.Refresh <= 0 { opts.Refresh = 5 * time.Second }
    if opts.Port == 0 { opts.Port = DefaultPort }
    if opts.Resolver == nil { opts.Resolver = net.DefaultResolver }
    return &Resolver{opts: opts}
}

// Seeds returns the sorted, de-duplicated answer for every name. It fails
// only when nothing resolved and at least one lookup returned an error.
func (r *Resolver) Seeds(ctx context.Context) ([]string, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    if len(r.cache) > 0 && time.Since(r.last) < r.opts.Refresh {
        return append([]string(nil), r.cache...), nil
    }
    seen := make(map[string]struct{})
    var errs []error
    for _, name := range r.opts.Names {
        name = strings.TrimSpace(name)
        if name == "" { continue }
        hps, err := r.resolve(ctx, name)
        if err != nil {
            errs = append(errs, fmt.Errorf("dns: %s: %w", name, err))
            continue
        }
        for _, hp := range hps { seen[hp] = struct{}{} }
    }
    out := make([]string, 0, len(seen))
    for hp := range seen { out = append(out, hp) }
    sort.Strings(out)
    if len(out) == 0 && len(errs) > 0 { return nil, errors.Join(errs...) }
    r.cache, r.last = out, time.Now()
    return append([]string(nil), out...), nil
}

func (r *Resolver) resolve(ctx context.Context, name string) ([]string, error) {
    if !strings.HasPrefix(name, "_") {
        if _, _, err := net.SplitHostPort(name); err == nil { return []string{name}, nil }
        return r.lookupHost(ctx, name)
    }
    svc, proto, domain := parseSRVName(name)
    if svc == "" { return nil, fmt.Errorf("malformed SRV name") }
    _, addrs, err := r.opts.Resolver.LookupSRV(ctx, svc, proto, domain)
    if err != nil { return nil, err }
    out := make([]string, 0, len(addrs))
    for _, a := range addrs {
        out = append(out, net.JoinHostPort(strings.TrimSuffix(a.Target, "."), strconv.Itoa(int(a.Port))))
    }
    return out, nil
}

func (r *Resolver) lookupHost(ctx context.Context, host string) ([]string, error) {
    ips, err := r.opts.Resolver.LookupHost(ctx, host)
    if err != nil { return nil, err }
    out := make([]string, 0, len(ips))
    for _, ip := range ips {
        out = append(out, net.JoinHostPort(ip, strconv.Itoa(r.opts.Port)))
    }
    return out, nil
}

// parseSRVName splits "_service._proto.domain".
func parseSRVName(fqdn string) (service, proto, domain string) {
    parts := strings.SplitN(fqdn, ".", 3)
    if len(parts) < 3 || !strings.HasPrefix(parts[0], "_") || !strings.HasPrefix(parts[1], "_") {
        return "", "", ""
    }
    return parts[0][1:], parts[1][1:], parts[2]
}

var _ discovery.Discovery = (*Resolver)(nil)
