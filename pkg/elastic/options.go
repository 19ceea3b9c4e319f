package elastic

import (
    "errors"
    "fmt"
    "log"
    "net/url"

    "github.com/amirimatin/go-clustermeta/pkg/security/tlsconfig"
)

// Options configure an Applier.
type Options struct {
    // Addresses of the cluster nodes, e.g. "http://localhost:9200". Ignored
    // by New, which takes a ready client.
    Addresses []string
    Username  string
    Password  string
    // TLS configures the client side of HTTPS connections.
    TLS tlsconfig.Options

    // Recreate deletes an existing index before creating it. Without it an
    // existing index is left untouched.
    Recreate bool
    // Refresh refreshes each index after it is created.
    Refresh bool

    Logger *log.Logger
}

// Validate checks the connection fields used by NewFromOptions.
func (o Options) Validate() error {
    if len(o.Addresses) == 0 { return errors.New("elastic: no addresses") }
    for _, a := range o.Addresses {
        u, err := url.Parse(a)
        if err != nil || u.Scheme == "" || u.Host == "" {
            return fmt.Errorf("elastic: invalid address %q", a)
        }
    }
    if o.Password != "" && o.Username == "" { return errors.New("elastic: password without username") }
    return nil
}
