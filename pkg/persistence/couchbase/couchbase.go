package couchbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gluufederation/containerlib-go/internal/metrics"
	"github.com/gluufederation/containerlib-go/pkg/errors"
	"github.com/gluufederation/containerlib-go/pkg/manager"
	"github.com/gluufederation/containerlib-go/pkg/utils"
)

// Bucket creation defaults used by AddBucket.
const (
	DefaultBucketMemsize = 100
	DefaultBucketType    = "couchbase"
)

// Client is the facade over the two Couchbase service clients. The service
// clients are built lazily on first use and memoized together with their
// resolved host, so a process probes the host list at most once per
// service.
type Client struct {
	hosts    string
	user     string
	password string
	rest     *RestClient
	n1ql     *N1QLClient
}

// NewClient builds a facade for the given comma-separated host list. No
// host is contacted until the first operation.
func NewClient(hosts, user, password string) *Client {
	return &Client{
		hosts:    hosts,
		user:     user,
		password: password,
	}
}

// RestClient returns the memoized data-service client, resolving its host
// on first use. A failed resolution is not memoized, so a later call
// probes the host list again.
func (c *Client) RestClient(ctx context.Context) (*RestClient, error) {
	if c.rest == nil {
		client := NewRestClient(c.hosts, c.user, c.password)
		if host := client.ResolveHost(ctx); host == "" {
			return nil, c.resolutionError("data")
		}
		c.rest = client
	}
	return c.rest, nil
}

// N1QLClient returns the memoized query-service client, resolving its host
// on first use. A failed resolution is not memoized, so a later call
// probes the host list again.
func (c *Client) N1QLClient(ctx context.Context) (*N1QLClient, error) {
	if c.n1ql == nil {
		client := NewN1QLClient(c.hosts, c.user, c.password)
		if host := client.ResolveHost(ctx); host == "" {
			return nil, c.resolutionError("query")
		}
		c.n1ql = client
	}
	return c.n1ql, nil
}

func (c *Client) resolutionError(service string) error {
	return errors.NewError(errors.ErrCodeHostResolution,
		fmt.Sprintf("unable to resolve host for %s service from %s list", service, c.hosts)).
		WithComponent("couchbase").
		WithContext("service", service)
}

// GetBuckets lists the buckets known to the cluster.
func (c *Client) GetBuckets(ctx context.Context) (*http.Response, error) {
	rest, err := c.RestClient(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := rest.ExecAPI(ctx, "pools/default/buckets", nil, http.MethodGet)
	metrics.Default().RecordOperation("couchbase", "get_buckets", time.Since(start), err)
	return resp, err
}

// AddBucket creates a bucket with SASL auth. A non-positive memsize falls
// back to 100 MB and an empty bucketType to "couchbase".
func (c *Client) AddBucket(ctx context.Context, name string, memsize int, bucketType string) (*http.Response, error) {
	if memsize <= 0 {
		memsize = DefaultBucketMemsize
	}
	if bucketType == "" {
		bucketType = DefaultBucketType
	}

	rest, err := c.RestClient(ctx)
	if err != nil {
		return nil, err
	}

	data := url.Values{}
	data.Set("name", name)
	data.Set("bucketType", bucketType)
	data.Set("ramQuotaMB", strconv.Itoa(memsize))
	data.Set("authType", "sasl")

	start := time.Now()
	resp, err := rest.ExecAPI(ctx, "pools/default/buckets", data, http.MethodPost)
	metrics.Default().RecordOperation("couchbase", "add_bucket", time.Since(start), err)
	return resp, err
}

// GetSystemInfo returns the cluster information document from
// pools/default. A non-success response yields an empty map rather than an
// error, so callers can always range over the result.
func (c *Client) GetSystemInfo(ctx context.Context) (map[string]interface{}, error) {
	rest, err := c.RestClient(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := rest.ExecAPI(ctx, "pools/default", nil, http.MethodGet)
	metrics.Default().RecordOperation("couchbase", "get_system_info", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	info := map[string]interface{}{}
	if resp.StatusCode >= http.StatusBadRequest {
		return info, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.NewError(errors.ErrCodeEncodingFailed,
			fmt.Sprintf("failed to decode system info: %v", err)).
			WithComponent("couchbase").
			WithOperation("get_system_info").
			WithCause(err)
	}
	return info, nil
}

// ExecQuery runs a N1QL statement through the query service. Positional
// and named parameters may be nil.
func (c *Client) ExecQuery(ctx context.Context, query string, positional []interface{}, named map[string]interface{}) (*http.Response, error) {
	data, err := BuildN1QLRequestBody(query, positional, named)
	if err != nil {
		return nil, err
	}

	n1ql, err := c.N1QLClient(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := n1ql.ExecAPI(ctx, "query/service", data, http.MethodPost)
	metrics.Default().RecordOperation("couchbase", "exec_query", time.Since(start), err)
	return resp, err
}

// CreateUser creates or replaces a local RBAC user on the cluster. Roles
// are joined into the comma-separated form the API expects.
func (c *Client) CreateUser(ctx context.Context, username, password, fullname string, roles []string) (*http.Response, error) {
	rest, err := c.RestClient(ctx)
	if err != nil {
		return nil, err
	}

	data := url.Values{}
	data.Set("name", fullname)
	data.Set("password", password)
	data.Set("roles", strings.Join(roles, ","))

	start := time.Now()
	resp, err := rest.ExecAPI(ctx, "settings/rbac/users/local/"+username, data, http.MethodPut)
	metrics.Default().RecordOperation("couchbase", "create_user", time.Since(start), err)
	return resp, err
}

// IDFromDN converts an LDAP DN into the document key used by the Couchbase
// buckets. The organization RDN is dropped, the remaining values are
// reversed and joined with underscores, and the root entry maps to "_".
//
// Example usage:
//
//	id := couchbase.IDFromDN("inum=29DA,ou=attributes,o=gluu")
//	// id == "attributes_29DA"
func IDFromDN(dn string) string {
	var parts []string
	for _, rdn := range strings.Split(dn, ",") {
		if rdn == "o=gluu" {
			continue
		}
		kv := strings.Split(rdn, "=")
		parts = append(parts, kv[len(kv)-1])
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}

	id := strings.Join(parts, "_")
	if id == "" {
		id = "_"
	}
	return id
}

// ResolveTruststorePassword returns the password protecting the Couchbase
// truststore, generating and persisting a random one on first use.
func ResolveTruststorePassword(mgr *manager.Manager) (string, error) {
	password, err := mgr.Secret.Get("couchbase_truststore_pw")
	if err != nil {
		return "", err
	}
	if password != "" {
		return password, nil
	}

	password = utils.GetRandomChars(12)
	if err := mgr.Secret.Set("couchbase_truststore_pw", password); err != nil {
		return "", err
	}
	return password, nil
}
