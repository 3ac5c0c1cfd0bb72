// Package httpclient builds the outbound HTTP clients used by a worker
// (C7): a retrying client for idempotent GET fetches from the HTTP
// spider's source, and a plain non-retrying client for the streaming
// multipart POST leg, which must not be buffered in memory for replay.
package httpclient

import (
	"context"
	"crypto/tls"
	"net"
	nethttp "net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/http2"

	"github.com/kpcyrd/brchd/internal/logging"
)

const (
	connectTimeout = 5 * time.Second
	retryMax       = 10
	retryWaitMin   = 1 * time.Second
	retryWaitMax   = 30 * time.Second
)

// Options configures the per-worker HTTP clients, per §4.6: connect
// timeout 5s, overall request timeout disabled, optional proxy URL,
// accept_invalid_certs pass-through.
type Options struct {
	ProxyURL           string
	AcceptInvalidCerts bool
}

// Clients bundles the two clients a worker needs: Fetch retries network
// errors and 5xx/429 responses (safe — GET has no body to replay) and
// Upload does not (its request body is a live io.Pipe reader; retrying it
// would require buffering the whole, possibly encrypted, upload in memory
// to produce a replayable GetBody, which defeats the streaming design).
type Clients struct {
	Fetch  *nethttp.Client
	Upload *nethttp.Client
}

// New builds both of a worker's HTTP clients from a single shared
// transport, HTTP/2-tuned, with the fetch leg wrapped in retryablehttp the
// same way the teacher's API client wires its own.
func New(opts Options, logger *logging.Logger) (*Clients, error) {
	transport, err := buildTransport(opts)
	if err != nil {
		return nil, err
	}

	upload := &nethttp.Client{Transport: transport, Timeout: 0}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &nethttp.Client{Transport: transport, Timeout: 0}
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = retryWaitMin
	retryClient.RetryWaitMax = retryWaitMax
	retryClient.CheckRetry = checkRetry
	if logger != nil {
		retryClient.Logger = &retryLogger{logger: logger}
	} else {
		retryClient.Logger = nil
	}

	return &Clients{
		Fetch:  retryClient.StandardClient(),
		Upload: upload,
	}, nil
}

func buildTransport(opts Options) (*nethttp.Transport, error) {
	transport := &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: opts.AcceptInvalidCerts, //nolint:gosec // explicit opt-in, per §4.6
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   30 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}

	if opts.ProxyURL != "" {
		parsed, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, err
		}
		transport.Proxy = nethttp.ProxyURL(parsed)
	} else {
		transport.Proxy = nethttp.ProxyFromEnvironment
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, err
	}

	return transport, nil
}

// checkRetry classifies an attempt's outcome the way a worker should: retry
// network errors and 5xx/429 server responses, give up on everything else.
func checkRetry(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if resp.StatusCode == nethttp.StatusTooManyRequests {
		return true, nil
	}
	if resp.StatusCode >= 500 && resp.StatusCode != nethttp.StatusNotImplemented {
		return true, nil
	}
	return false, nil
}

// retryLogger adapts the daemon's structured logger to retryablehttp's
// LeveledLogger interface.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, kv ...interface{}) { l.logger.Raw().Error().Fields(kv).Msg(msg) }
func (l *retryLogger) Info(msg string, kv ...interface{})  { l.logger.Raw().Info().Fields(kv).Msg(msg) }
func (l *retryLogger) Debug(msg string, kv ...interface{}) { l.logger.Raw().Debug().Fields(kv).Msg(msg) }
func (l *retryLogger) Warn(msg string, kv ...interface{})  { l.logger.Raw().Warn().Fields(kv).Msg(msg) }
