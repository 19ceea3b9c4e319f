// Package elastic materializes a metadata snapshot into a live Elasticsearch
// cluster: one create-index request per index carrying its settings, mapping
// and aliases.
package elastic

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log"
    "net/http"

    "github.com/elastic/go-elasticsearch/v8"
    "github.com/elastic/go-elasticsearch/v8/esapi"
    "go.opentelemetry.io/otel/attribute"

    "github.com/amirimatin/go-clustermeta/pkg/internal/logutil"
    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
    obsmetrics "github.com/amirimatin/go-clustermeta/pkg/observability/metrics"
    "github.com/amirimatin/go-clustermeta/pkg/observability/tracing"
    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

// ErrMultipleMappings is returned for an index carrying more than one
// mapping; Elasticsearch accepts a single mapping per index.
var ErrMultipleMappings = errors.New("elastic: more than one mapping")

// Applier creates indices described by metadata.
type Applier struct {
    client *elasticsearch.Client
    opts   Options
    log    *log.Logger
}

// New wraps an existing client.
func New(client *elasticsearch.Client, opts Options) (*Applier, error) {
    if client == nil { return nil, errors.New("elastic: client must not be nil") }
    if opts.Logger == nil { opts.Logger = log.Default() }
    return &Applier{client: client, opts: opts, log: opts.Logger}, nil
}

// NewFromOptions builds a client from opts.Addresses and credentials.
func NewFromOptions(opts Options) (*Applier, error) {
    if err := opts.Validate(); err != nil { return nil, err }
    cfg := elasticsearch.Config{
        Addresses: opts.Addresses,
        Username:  opts.Username,
        Password:  opts.Password,
    }
    tc, err := opts.TLS.Client()
    if err != nil { return nil, fmt.Errorf("elastic: %w", err) }
    if tc != nil { cfg.Transport = &http.Transport{TLSClientConfig: tc} }
    client, err := elasticsearch.NewClient(cfg)
    if err != nil { return nil, fmt.Errorf("elastic: creating client: %w", err) }
    return New(client, opts)
}

// Apply creates every index of m in snapshot order and stops at the first
// failure.
func (a *Applier) Apply(ctx context.Context, m md.Metadata) error {
    for _, im := range m.Indices().All() {
        if err := a.ApplyIndex(ctx, im); err != nil { return err }
    }
    return nil
}

// ApplyIndex creates one index. An existing index is deleted first when
// Recreate is set and skipped otherwise.
func (a *Applier) ApplyIndex(ctx context.Context, im md.IndexMetadata) (err error) {
    ctx, end := tracing.StartSpan(ctx, "elastic.ApplyIndex", attribute.String("index", im.Name()))
    defer end()
    defer func() { obsmetrics.IndicesApplied.WithLabelValues(obsmetrics.Result(err)).Inc() }()

    body, err := CreateIndexBody(im)
    if err != nil { return err }

    if a.opts.Recreate {
        if err := a.DeleteIndex(ctx, im.Name()); err != nil { return err }
    } else {
        exists, err := a.indexExists(ctx, im.Name())
        if err != nil { return err }
        if exists {
            logutil.Warnf(a.log, "elastic: index [%s] exists, skipping", im.Name())
            return nil
        }
    }

    res, err := a.client.Indices.Create(im.Name(),
        a.client.Indices.Create.WithBody(bytes.NewReader(body)),
        a.client.Indices.Create.WithContext(ctx),
    )
    if err != nil { return fmt.Errorf("elastic: creating index [%s]: %w", im.Name(), err) }
    defer res.Body.Close()
    if err := checkResponse(res); err != nil { return fmt.Errorf("elastic: creating index [%s]: %w", im.Name(), err) }

    if a.opts.Refresh {
        if err := a.refreshIndex(ctx, im.Name()); err != nil { return err }
    }
    logutil.Infof(a.log, "elastic: index [%s] created", im.Name())
    return nil
}

// DeleteIndex removes an index; a missing index is not an error.
func (a *Applier) DeleteIndex(ctx context.Context, name string) error {
    res, err := a.client.Indices.Delete([]string{name},
        a.client.Indices.Delete.WithContext(ctx),
        a.client.Indices.Delete.WithIgnoreUnavailable(true),
    )
    if err != nil { return fmt.Errorf("elastic: deleting index [%s]: %w", name, err) }
    defer res.Body.Close()
    if err := checkResponse(res); err != nil { return fmt.Errorf("elastic: deleting index [%s]: %w", name, err) }
    return nil
}

func (a *Applier) indexExists(ctx context.Context, name string) (bool, error) {
    res, err := a.client.Indices.Exists([]string{name}, a.client.Indices.Exists.WithContext(ctx))
    if err != nil { return false, fmt.Errorf("elastic: checking index [%s]: %w", name, err) }
    defer res.Body.Close()
    switch res.StatusCode {
    case http.StatusOK:
        return true, nil
    case http.StatusNotFound:
        return false, nil
    }
    return false, fmt.Errorf("elastic: checking index [%s]: %w", name, checkResponse(res))
}

func (a *Applier) refreshIndex(ctx context.Context, name string) error {
    res, err := a.client.Indices.Refresh(
        a.client.Indices.Refresh.WithIndex(name),
        a.client.Indices.Refresh.WithContext(ctx),
    )
    if err != nil { return fmt.Errorf("elastic: refreshing index [%s]: %w", name, err) }
    defer res.Body.Close()
    if err := checkResponse(res); err != nil { return fmt.Errorf("elastic: refreshing index [%s]: %w", name, err) }
    return nil
}

// CreateIndexBody renders the Create Index API body for im:
//
//  {"settings": {...}, "mappings": {...}, "aliases": {"<alias>": {"filter": {...}}}}
//
// A mapping source of the form {"<mapping name>": {...}} is unwrapped.
func CreateIndexBody(im md.IndexMetadata) ([]byte, error) {
    s := make(xcontent.Object, 0, im.Settings().Len())
    im.Settings().Each(func(k, v string) { s.Set(k, v) })
    body := xcontent.Object{{Name: "settings", Value: s}}

    switch im.Mappings().Len() {
    case 0:
    case 1:
        m := im.Mappings().Values()[0]
        src, err := unwrapMapping(m)
        if err != nil { return nil, fmt.Errorf("elastic: index [%s] mapping [%s]: %w", im.Name(), m.Name(), err) }
        body.Set("mappings", src)
    default:
        return nil, fmt.Errorf("%w: index [%s] has %v", ErrMultipleMappings, im.Name(), im.Mappings().Keys())
    }

    if im.Aliases().Len() > 0 {
        aliases := make(xcontent.Object, 0, im.Aliases().Len())
        for name, al := range im.Aliases().All() {
            entry := xcontent.Object{}
            if f, ok := al.Filter(); ok { entry.Set("filter", f) }
            aliases.Set(name, entry)
        }
        body.Set("aliases", aliases)
    }
    return xcontent.Marshal(body)
}

func unwrapMapping(m md.MappingMetadata) (json.RawMessage, error) {
    src := m.Source()
    fields, err := xcontent.ReadObject(src)
    if err != nil { return nil, err }
    if len(fields) == 1 && fields[0].Name == m.Name() && xcontent.KindOf(fields[0].Value) == xcontent.KindObject {
        return fields[0].Value, nil
    }
    return src, nil
}

func checkResponse(res *esapi.Response) error {
    if !res.IsError() { return nil }
    body, _ := io.ReadAll(res.Body)
    return fmt.Errorf("elasticsearch error [%s]: %s", res.Status(), string(body))
}
