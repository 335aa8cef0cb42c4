package manager

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreMissingFile(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	val, err := store.Get("encoded_salt")
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestFileStoreSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "conf", "secrets.yaml")
	store := NewFileStore(path)

	require.NoError(t, store.Set("encoded_salt", "IP2dvAhtmM20cboPBkBIeFfI"))
	require.NoError(t, store.Set("couchbase_truststore_pw", "s3cr3t"))

	val, err := store.Get("encoded_salt")
	require.NoError(t, err)
	assert.Equal(t, "IP2dvAhtmM20cboPBkBIeFfI", val)

	val, err = store.Get("couchbase_truststore_pw")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", val)

	// Unknown keys stay empty rather than erroring
	val, err = store.Get("missing")
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestFileStoreSetPreservesExistingKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hostname: idp.example.org\n"), 0600))

	store := NewFileStore(path)
	require.NoError(t, store.Set("orgName", "Example Inc"))

	val, err := store.Get("hostname")
	require.NoError(t, err)
	assert.Equal(t, "idp.example.org", val)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "orgName"), "written file should contain the new key")
}

func TestFileStoreMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hostname: [unclosed"), 0600))

	store := NewFileStore(path)
	_, err := store.Get("any")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(map[string]string{"hostname": "idp.example.org"})

	val, err := store.Get("hostname")
	require.NoError(t, err)
	assert.Equal(t, "idp.example.org", val)

	require.NoError(t, store.Set("orgName", "Example Inc"))
	val, err = store.Get("orgName")
	require.NoError(t, err)
	assert.Equal(t, "Example Inc", val)

	val, err = store.Get("missing")
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestManagerAggregatesStores(t *testing.T) {
	t.Parallel()

	config := NewMemoryStore(map[string]string{"couchbase_trust_store_fn": "/etc/certs/couchbase.pkcs12"})
	secret := NewMemoryStore(map[string]string{"encoded_salt": "IP2dvAhtmM20cboPBkBIeFfI"})

	mgr := New(config, secret)

	val, err := mgr.Config.Get("couchbase_trust_store_fn")
	require.NoError(t, err)
	assert.Equal(t, "/etc/certs/couchbase.pkcs12", val)

	val, err = mgr.Secret.Get("encoded_salt")
	require.NoError(t, err)
	assert.Equal(t, "IP2dvAhtmM20cboPBkBIeFfI", val)
}
