package helpers

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// ESOptions configures the user directory's Elasticsearch client.
type ESOptions struct {
	Addrs    []string
	Username string
	Password string
	// Timeout bounds dialing and waiting for response headers. It should not
	// exceed the per-call deadline the directory applies, or a hung node
	// would outlive the request that started it.
	Timeout    time.Duration
	MaxRetries int
}

// Gateway errors from a coordinating node are worth one more node.
var esRetryStatuses = []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout}

// NewESClient builds a client with bounded timeouts, retries on gateway
// errors only, and optional basic auth.
func NewESClient(o ESOptions) (*elasticsearch.Client, error) {
	if len(o.Addrs) == 0 {
		return nil, errors.New("elasticsearch: no addresses")
	}
	if o.Timeout <= 0 {
		o.Timeout = 3 * time.Second
	}
	cfg := elasticsearch.Config{
		Addresses:     o.Addrs,
		Username:      o.Username,
		Password:      o.Password,
		MaxRetries:    o.MaxRetries,
		DisableRetry:  o.MaxRetries <= 0,
		RetryOnStatus: esRetryStatuses,
		Transport:     newESTransport(o.Timeout),
	}
	return elasticsearch.NewClient(cfg)
}

func newESTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: timeout,
		TLSHandshakeTimeout:   timeout,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
	}
}
