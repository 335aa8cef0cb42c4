package couchbase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluufederation/containerlib-go/pkg/errors"
)

type recordedRequest struct {
	method, path string
	form         url.Values
}

// newFacadeServer answers the data-service healthcheck and forwards every
// other request to the channel.
func newFacadeServer(t *testing.T, got chan recordedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pools/" {
			return
		}
		_ = r.ParseForm()
		got <- recordedRequest{r.Method, r.URL.Path, r.PostForm}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_GetBuckets(t *testing.T) {
	t.Setenv("GLUU_COUCHBASE_TRUSTSTORE_ENABLE", "false")

	got := make(chan recordedRequest, 1)
	srv := newFacadeServer(t, got)

	client := NewClient(hostOf(srv), "admin", "secret")
	resp, err := client.GetBuckets(context.Background())
	require.NoError(t, err)
	resp.Body.Close()

	req := <-got
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/pools/default/buckets", req.path)
}

func TestClient_AddBucket_Defaults(t *testing.T) {
	t.Setenv("GLUU_COUCHBASE_TRUSTSTORE_ENABLE", "false")

	got := make(chan recordedRequest, 1)
	srv := newFacadeServer(t, got)

	client := NewClient(hostOf(srv), "admin", "secret")
	resp, err := client.AddBucket(context.Background(), "gluu_user", 0, "")
	require.NoError(t, err)
	resp.Body.Close()

	req := <-got
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/pools/default/buckets", req.path)
	assert.Equal(t, "gluu_user", req.form.Get("name"))
	assert.Equal(t, "couchbase", req.form.Get("bucketType"))
	assert.Equal(t, "100", req.form.Get("ramQuotaMB"))
	assert.Equal(t, "sasl", req.form.Get("authType"))
}

func TestClient_AddBucket_Explicit(t *testing.T) {
	t.Setenv("GLUU_COUCHBASE_TRUSTSTORE_ENABLE", "false")

	got := make(chan recordedRequest, 1)
	srv := newFacadeServer(t, got)

	client := NewClient(hostOf(srv), "admin", "secret")
	resp, err := client.AddBucket(context.Background(), "gluu_session", 256, "ephemeral")
	require.NoError(t, err)
	resp.Body.Close()

	req := <-got
	assert.Equal(t, "gluu_session", req.form.Get("name"))
	assert.Equal(t, "ephemeral", req.form.Get("bucketType"))
	assert.Equal(t, "256", req.form.Get("ramQuotaMB"))
}

func TestClient_GetSystemInfo(t *testing.T) {
	t.Setenv("GLUU_COUCHBASE_TRUSTSTORE_ENABLE", "false")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pools/default" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"rebalanceStatus":"none","nodes":[{"hostname":"cb-0.local"}]}`))
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(hostOf(srv), "admin", "secret")
	info, err := client.GetSystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "none", info["rebalanceStatus"])
	assert.Len(t, info["nodes"], 1)
}

func TestClient_GetSystemInfo_NonSuccess(t *testing.T) {
	t.Setenv("GLUU_COUCHBASE_TRUSTSTORE_ENABLE", "false")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pools/default" {
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(hostOf(srv), "admin", "secret")
	info, err := client.GetSystemInfo(context.Background())
	require.NoError(t, err)
	assert.Empty(t, info)
}

func TestClient_ExecQuery(t *testing.T) {
	t.Setenv("GLUU_COUCHBASE_TRUSTSTORE_ENABLE", "false")

	got := make(chan recordedRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("statement") == "SELECT status FROM system:indexes LIMIT 1" {
			return
		}
		got <- recordedRequest{r.Method, r.URL.Path, r.PostForm}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(hostOf(srv), "admin", "secret")
	resp, err := client.ExecQuery(context.Background(),
		"SELECT META().id FROM `gluu` WHERE objectClass = $1",
		[]interface{}{"gluuPerson"}, nil)
	require.NoError(t, err)
	resp.Body.Close()

	req := <-got
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/query/service", req.path)
	assert.Equal(t, "SELECT META().id FROM `gluu` WHERE objectClass = $1", req.form.Get("statement"))
	assert.Equal(t, `["gluuPerson"]`, req.form.Get("args"))
}

func TestClient_CreateUser(t *testing.T) {
	t.Setenv("GLUU_COUCHBASE_TRUSTSTORE_ENABLE", "false")

	got := make(chan recordedRequest, 1)
	srv := newFacadeServer(t, got)

	client := NewClient(hostOf(srv), "admin", "secret")
	resp, err := client.CreateUser(context.Background(),
		"gluu", "s3cr3t", "Gluu Server", []string{"bucket_full_access[*]", "query_select[*]"})
	require.NoError(t, err)
	resp.Body.Close()

	req := <-got
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/settings/rbac/users/local/gluu", req.path)
	assert.Equal(t, "Gluu Server", req.form.Get("name"))
	assert.Equal(t, "s3cr3t", req.form.Get("password"))
	assert.Equal(t, "bucket_full_access[*],query_select[*]", req.form.Get("roles"))
}

func TestClient_HostResolutionFailure(t *testing.T) {
	t.Setenv("GLUU_COUCHBASE_TRUSTSTORE_ENABLE", "false")

	hosts := unreachableAddr(t)
	client := NewClient(hosts, "admin", "secret")

	_, err := client.GetBuckets(context.Background())
	require.Error(t, err)

	var gerr *errors.GluuError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, errors.ErrCodeHostResolution, gerr.Code)
	assert.Contains(t, gerr.Message, "data service")
	assert.Contains(t, gerr.Message, hosts)
	assert.False(t, gerr.Retryable)
	assert.False(t, errors.IsRecoverable(err))
}

func TestClient_DataClientResolvedOnce(t *testing.T) {
	t.Setenv("GLUU_COUCHBASE_TRUSTSTORE_ENABLE", "false")

	var healthchecks atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pools/" {
			healthchecks.Add(1)
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(hostOf(srv), "admin", "secret")
	for i := 0; i < 3; i++ {
		resp, err := client.GetBuckets(context.Background())
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.EqualValues(t, 1, healthchecks.Load())
}

func TestIDFromDN(t *testing.T) {
	tests := []struct {
		name string
		dn   string
		want string
	}{
		{name: "attribute entry", dn: "inum=29DA,ou=attributes,o=gluu", want: "attributes_29DA"},
		{name: "nested organizational units", dn: "ou=oxauth,ou=configuration,o=gluu", want: "configuration_oxauth"},
		{name: "root entry", dn: "o=gluu", want: "_"},
		{name: "empty dn", dn: "", want: "_"},
		{name: "person entry", dn: "inum=A0B1,ou=people,o=gluu", want: "people_A0B1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IDFromDN(tt.dn); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestResolveTruststorePassword(t *testing.T) {
	mgr := testManager(nil)

	password, err := ResolveTruststorePassword(mgr)
	require.NoError(t, err)
	assert.Len(t, password, 12)

	stored, err := mgr.Secret.Get("couchbase_truststore_pw")
	require.NoError(t, err)
	assert.Equal(t, password, stored)

	again, err := ResolveTruststorePassword(mgr)
	require.NoError(t, err)
	assert.Equal(t, password, again)
}
