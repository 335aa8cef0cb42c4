package couchbase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluufederation/containerlib-go/pkg/utils"
)

const propertiesTemplate = `servers: %(hostname)s
auth.userName: %(couchbase_server_user)s
auth.userPassword: %(encoded_couchbase_server_pw)s
buckets: %(couchbase_buckets)s
bucket.default: %(default_bucket)s
%(couchbase_mappings)s
password.encryption.method: %(encryption_method)s
ssl.trustStore.enable: %(ssl_enabled)s
ssl.trustStore.file: %(couchbaseTrustStoreFn)s
ssl.trustStore.pin: %(encoded_couchbaseTrustStorePass)s
connection.connect-timeout: %(couchbase_conn_timeout)s
connection.connection-max-wait-time: %(couchbase_conn_max_wait)s
connection.scan-consistency: %(couchbase_scan_consistency)s
connection.keep-alive-interval: %(couchbase_keepalive_interval)s
connection.keep-alive-timeout: %(couchbase_keepalive_timeout)s
custom: %(unknown_key)s
`

// propertyValue extracts the value of a "key: value" line from rendered
// properties.
func propertyValue(t *testing.T, rendered, key string) string {
	t.Helper()
	for _, line := range strings.Split(rendered, "\n") {
		if strings.HasPrefix(line, key+": ") {
			return strings.TrimPrefix(line, key+": ")
		}
	}
	t.Fatalf("no %s line in rendered properties", key)
	return ""
}

func renderToString(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	src := filepath.Join(dir, "gluu-couchbase.properties.tmpl")
	dest := filepath.Join(dir, "gluu-couchbase.properties")
	require.NoError(t, os.WriteFile(src, []byte(propertiesTemplate), 0600))

	mgr := testManager(map[string]string{"encoded_salt": testSalt})
	require.NoError(t, RenderProperties(mgr, src, dest))

	rendered, err := os.ReadFile(dest)
	require.NoError(t, err)
	return string(rendered)
}

func TestRenderProperties(t *testing.T) {
	passwordFile := filepath.Join(t.TempDir(), "couchbase_password")
	require.NoError(t, os.WriteFile(passwordFile, []byte("s3cr3t"), 0600))

	t.Setenv("GLUU_COUCHBASE_URL", "cb-0.local,cb-1.local")
	t.Setenv("GLUU_COUCHBASE_PASSWORD_FILE", passwordFile)
	t.Setenv("GLUU_COUCHBASE_TRUSTSTORE_ENABLE", "false")

	rendered := renderToString(t)

	assert.Equal(t, "cb-0.local,cb-1.local", propertyValue(t, rendered, "servers"))
	assert.Equal(t, "admin", propertyValue(t, rendered, "auth.userName"))
	assert.Equal(t, "gluu, gluu_user, gluu_cache, gluu_site, gluu_token, gluu_session",
		propertyValue(t, rendered, "buckets"))
	assert.Equal(t, "gluu", propertyValue(t, rendered, "bucket.default"))
	assert.Contains(t, rendered, "bucket.gluu_user.mapping: people, groups, authorizations")
	assert.Contains(t, rendered, "bucket.gluu_session.mapping: sessions")
	assert.Equal(t, "SSHA-256", propertyValue(t, rendered, "password.encryption.method"))
	assert.Equal(t, "false", propertyValue(t, rendered, "ssl.trustStore.enable"))
	assert.Equal(t, "/etc/certs/couchbase.pkcs12", propertyValue(t, rendered, "ssl.trustStore.file"))
	assert.Equal(t, "10000", propertyValue(t, rendered, "connection.connect-timeout"))
	assert.Equal(t, "20000", propertyValue(t, rendered, "connection.connection-max-wait-time"))
	assert.Equal(t, "not_bounded", propertyValue(t, rendered, "connection.scan-consistency"))
	assert.Equal(t, "30000", propertyValue(t, rendered, "connection.keep-alive-interval"))
	assert.Equal(t, "2500", propertyValue(t, rendered, "connection.keep-alive-timeout"))

	// Placeholders without a known value survive verbatim.
	assert.Equal(t, "%(unknown_key)s", propertyValue(t, rendered, "custom"))

	// The password is written in its reversible encoded form.
	encoded := propertyValue(t, rendered, "auth.userPassword")
	decoded, err := utils.DecodeText(encoded, testSalt)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", decoded)

	// The truststore pin decodes to the generated truststore password.
	pin := propertyValue(t, rendered, "ssl.trustStore.pin")
	truststorePass, err := utils.DecodeText(pin, testSalt)
	require.NoError(t, err)
	assert.Len(t, truststorePass, 12)
}

func TestRenderProperties_HybridExcludesLDAPRealm(t *testing.T) {
	passwordFile := filepath.Join(t.TempDir(), "couchbase_password")
	require.NoError(t, os.WriteFile(passwordFile, []byte("s3cr3t"), 0600))

	t.Setenv("GLUU_COUCHBASE_PASSWORD_FILE", passwordFile)
	t.Setenv("GLUU_PERSISTENCE_TYPE", "hybrid")
	t.Setenv("GLUU_PERSISTENCE_LDAP_MAPPING", "user")

	rendered := renderToString(t)

	assert.Equal(t, "gluu, gluu_cache, gluu_site, gluu_token, gluu_session",
		propertyValue(t, rendered, "buckets"))
	assert.NotContains(t, rendered, "bucket.gluu_user.mapping")
}

func TestRenderProperties_DefaultBucketAlwaysListed(t *testing.T) {
	passwordFile := filepath.Join(t.TempDir(), "couchbase_password")
	require.NoError(t, os.WriteFile(passwordFile, []byte("s3cr3t"), 0600))

	t.Setenv("GLUU_COUCHBASE_PASSWORD_FILE", passwordFile)
	t.Setenv("GLUU_PERSISTENCE_TYPE", "hybrid")
	t.Setenv("GLUU_PERSISTENCE_LDAP_MAPPING", "default")

	rendered := renderToString(t)

	// The default realm went to LDAP, but its bucket stays first in the
	// list.
	assert.Equal(t, "gluu, gluu_user, gluu_cache, gluu_site, gluu_token, gluu_session",
		propertyValue(t, rendered, "buckets"))
}
