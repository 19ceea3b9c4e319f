package file

import (
    "bufio"
    "context"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/amirimatin/go-clustermeta/pkg/discovery"
)

// Options configure file-based seed discovery. Files hold one seed per line
// or comma-separated seeds; blank lines and #-comments are skipped.
type Options struct {
    // Path is a file name or a glob.
    Path string
    // Env names a variable that, when non-empty, is used instead of Path.
    Env string
    // Refresh bounds how long a read is reused. Defaults to 5s.
    Refresh time.Duration
}

// Source reads seeds from disk, re-reading when the file changes or the
// cached read is older than Refresh.
type Source struct {
    opts  Options
    mu    sync.Mutex
    last  time.Time
    mtime time.Time
    cache []string
}

func New(opts Options) *Source {
    if opts.Refresh <= 0 { opts.Refresh = 5 * time.Second }
    return &Source{opts: opts}
}

func (s *Source) Seeds(context.Context) ([]string, error) {
    if s.opts.Env != "" {
        if v := strings.TrimSpace(os.Getenv(s.opts.Env)); v != "" { return normalize(strings.Split(v, ",")), nil }
    }
    if s.opts.Path == "" { return nil, nil }

    s.mu.Lock()
    defer s.mu.Unlock()
    now := time.Now()
    if st, err := os.Stat(s.opts.Path); err == nil {
        if st.ModTime().After(s.mtime) || now.Sub(s.last) >= s.opts.Refresh {
            seeds, err := readFile(s.opts.Path)
            if err != nil { return nil, err }
            s.cache, s.last, s.mtime = seeds, now, st.ModTime()
        }
        return append([]string(nil), s.cache...), nil
    }
    matches, err := filepath.Glob(s.opts.Path)
    if err != nil { return nil, fmt.Errorf("file: %w", err) }
    if len(matches) == 0 { return nil, fmt.Errorf("file: no seed file matches %s", s.opts.Path) }
    var all []string
    for _, m := range matches {
        seeds, err := readFile(m)
        if err != nil { return nil, err }
        all = append(all, seeds...)
    }
    s.cache, s.last = normalize(all), now
    return append([]string(nil), s.cache...), nil
}

func readFile(path string) ([]string, error) {
    f, err := os.Open(path)
    if err != nil { return nil, fmt.Errorf("file: %w", err) }
    defer f.Close()
    var seeds []string
    sc := bufio.NewScanner(f)
    for sc.Scan() {
        line := strings.TrimSpace(sc.Text())
        if line == "" || strings.HasPrefix(line, "#") { continue }
        seeds = append(seeds, strings.Split(line, ",")...)
    }
    if err := sc.Err(); err != nil { return nil, fmt.Errorf("file: reading %s: %w", path, err) }
    return normalize(seeds), nil
}

// normalize trims, de-duplicates and sorts.
func normalize(in []string) []string {
    set := make(map[string]struct{}, len(in))
    for _, v := range in {
        if v = strings.TrimSpace(v); v != "" { set[v] = struct{}{} }
    }
    out := make([]string, 0, len(set))
    for v := range set { out = append(out, v) }
    sort.Strings(out)
    return out
}

var _ discovery.Discovery = (*Source)(nil)
