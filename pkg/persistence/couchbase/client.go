package couchbase

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gluufederation/containerlib-go/internal/metrics"
	"github.com/gluufederation/containerlib-go/pkg/errors"
	"github.com/gluufederation/containerlib-go/pkg/utils"
)

// Well-known Couchbase service ports. The secure variants apply when the
// truststore is enabled.
const (
	restPort       = 8091
	restPortSecure = 18091
	n1qlPort       = 8093
	n1qlPortSecure = 18093
)

// healthcheckTimeout bounds each per-host probe during host resolution.
const healthcheckTimeout = 10 * time.Second

var verificationWarning sync.Once

// ParseHosts splits a comma-separated host list into individual entries,
// trimming whitespace and dropping empties.
func ParseHosts(hosts string) []string {
	var out []string
	for _, host := range strings.Split(hosts, ",") {
		host = strings.TrimSpace(host)
		if host == "" {
			continue
		}
		out = append(out, host)
	}
	return out
}

// baseClient carries what the two service clients share: the candidate host
// list, credentials, the TLS-aware HTTP session, and the host settled on by
// resolution.
type baseClient struct {
	hosts      []string
	host       string
	user       string
	password   string
	scheme     string
	port       int
	service    string
	hostHeader string
	session    *http.Client
	logger     *slog.Logger
}

func newBaseClient(hosts, user, password, service string, port, securePort int) baseClient {
	client := baseClient{
		hosts:    ParseHosts(hosts),
		user:     user,
		password: password,
		service:  service,
		scheme:   "http",
		port:     port,
		logger:   slog.Default(),
	}
	if GetTruststoreEnabled() {
		client.scheme = "https"
		client.port = securePort
	}
	return client
}

// getSession lazily builds the HTTP client. Verification against the
// cluster certificate is opt-in through GLUU_COUCHBASE_VERIFY; the TLS name
// checked is GLUU_COUCHBASE_HOST_HEADER, which may differ from the address
// the client connects to.
func (c *baseClient) getSession() (*http.Client, error) {
	if c.session != nil {
		return c.session, nil
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-provisioned clusters present untrusted certificates
	if utils.AsBoolean(envOrDefault("GLUU_COUCHBASE_VERIFY", "false")) {
		certFile := envOrDefault("GLUU_COUCHBASE_CERT_FILE", DefaultCertFile)
		pem, err := os.ReadFile(certFile)
		if err != nil {
			return nil, errors.NewError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("failed to read cluster certificate: %v", err)).
				WithComponent("couchbase").
				WithContext("path", certFile).
				WithCause(err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.NewError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("no certificates found in %s", certFile)).
				WithComponent("couchbase").
				WithContext("path", certFile)
		}
		c.hostHeader = envOrDefault("GLUU_COUCHBASE_HOST_HEADER", DefaultHostHeader)
		tlsConfig = &tls.Config{RootCAs: pool, ServerName: c.hostHeader}
	} else if !utils.AsBoolean(envOrDefault("GLUU_COUCHBASE_SUPPRESS_VERIFICATION", "true")) {
		verificationWarning.Do(func() {
			c.logger.Warn("Certificate verification is disabled for Couchbase connections")
		})
	}

	c.session = &http.Client{
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	}
	return c.session, nil
}

// hostPort appends the service port unless the host entry already carries
// an explicit one.
func (c *baseClient) hostPort(host string) string {
	if strings.Contains(host, ":") {
		return host
	}
	return fmt.Sprintf("%s:%d", host, c.port)
}

func (c *baseClient) doRequest(ctx context.Context, method, host, path string, data url.Values) (*http.Response, error) {
	session, err := c.getSession()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s://%s/%s", c.scheme, c.hostPort(host), path)
	var body io.Reader
	if len(data) > 0 {
		body = strings.NewReader(data.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeNetworkError,
			fmt.Sprintf("failed to build request: %v", err)).
			WithComponent("couchbase").
			WithCause(err)
	}
	req.SetBasicAuth(c.user, c.password)
	if len(data) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.hostHeader != "" {
		req.Host = c.hostHeader
	}
	return session.Do(req)
}

// ExecAPI performs an authenticated request against the resolved host. Only
// GET, POST, and PUT are supported; anything else fails before any network
// traffic. GET requests never carry a body.
func (c *baseClient) ExecAPI(ctx context.Context, path string, data url.Values, method string) (*http.Response, error) {
	switch method {
	case http.MethodGet:
		data = nil
	case http.MethodPost, http.MethodPut:
	default:
		return nil, errors.NewError(errors.ErrCodeUnsupportedMethod,
			fmt.Sprintf("unsupported method %s", method)).
			WithComponent("couchbase").
			WithOperation("exec_api")
	}
	return c.doRequest(ctx, method, c.host, path, data)
}

// resolveHost probes the candidate hosts in order and returns the first one
// whose healthcheck answers below 400. Unreachable hosts are logged and
// skipped; an empty string means no host answered.
func (c *baseClient) resolveHost(ctx context.Context, probe func(context.Context, string) (*http.Response, error)) string {
	for _, host := range c.hosts {
		reachable, reason := checkHost(ctx, host, probe)
		metrics.Default().RecordProbe(c.service, reachable)
		if reachable {
			return host
		}
		c.logger.Warn("Unable to connect to host",
			"host", host, "port", c.port, "reason", reason)
	}
	return ""
}

func checkHost(ctx context.Context, host string, probe func(context.Context, string) (*http.Response, error)) (bool, string) {
	resp, err := probe(ctx, host)
	if err != nil {
		return false, err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return false, resp.Status
	}
	return true, ""
}

// RestClient talks to the Couchbase data (management) service for bucket
// and user administration.
type RestClient struct {
	baseClient
}

// NewRestClient builds a client for the data service against the given
// comma-separated host list. No host is contacted until ResolveHost or an
// API call runs.
func NewRestClient(hosts, user, password string) *RestClient {
	return &RestClient{newBaseClient(hosts, user, password, "data", restPort, restPortSecure)}
}

// Healthcheck probes the management endpoint on one candidate host. The
// probe is bounded to ten seconds regardless of the parent context.
func (c *RestClient) Healthcheck(ctx context.Context, host string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, healthcheckTimeout)
	defer cancel()
	return c.doRequest(ctx, http.MethodGet, host, "pools/", nil)
}

// ResolveHost probes the candidate hosts in order and memoizes the first
// reachable one. An empty string means no candidate answered.
func (c *RestClient) ResolveHost(ctx context.Context) string {
	if c.host == "" {
		c.host = c.resolveHost(ctx, c.Healthcheck)
	}
	return c.host
}

// N1QLClient talks to the Couchbase query service.
type N1QLClient struct {
	baseClient
}

// NewN1QLClient builds a client for the query service against the given
// comma-separated host list. No host is contacted until ResolveHost or an
// API call runs.
func NewN1QLClient(hosts, user, password string) *N1QLClient {
	return &N1QLClient{newBaseClient(hosts, user, password, "query", n1qlPort, n1qlPortSecure)}
}

// Healthcheck probes the query endpoint on one candidate host with a
// harmless system-catalog statement. The probe is bounded to ten seconds
// regardless of the parent context.
func (c *N1QLClient) Healthcheck(ctx context.Context, host string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, healthcheckTimeout)
	defer cancel()

	data := url.Values{}
	data.Set("statement", "SELECT status FROM system:indexes LIMIT 1")
	return c.doRequest(ctx, http.MethodPost, host, "query/service", data)
}

// ResolveHost probes the candidate hosts in order and memoizes the first
// reachable one. An empty string means no candidate answered.
func (c *N1QLClient) ResolveHost(ctx context.Context) string {
	if c.host == "" {
		c.host = c.resolveHost(ctx, c.Healthcheck)
	}
	return c.host
}

// BuildN1QLRequestBody builds the form payload for the query service.
// Positional parameters are carried JSON-encoded under args; named
// parameters become individual $name fields with JSON-encoded values.
func BuildN1QLRequestBody(query string, positional []interface{}, named map[string]interface{}) (url.Values, error) {
	body := url.Values{}
	body.Set("statement", query)

	if len(positional) > 0 {
		encoded, err := json.Marshal(positional)
		if err != nil {
			return nil, errors.NewError(errors.ErrCodeEncodingFailed,
				fmt.Sprintf("failed to encode positional parameters: %v", err)).
				WithComponent("couchbase").
				WithCause(err)
		}
		body.Set("args", string(encoded))
	}

	for name, value := range named {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, errors.NewError(errors.ErrCodeEncodingFailed,
				fmt.Sprintf("failed to encode parameter %s: %v", name, err)).
				WithComponent("couchbase").
				WithCause(err)
		}
		body.Set("$"+name, string(encoded))
	}
	return body, nil
}
