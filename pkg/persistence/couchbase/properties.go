package couchbase

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gluufederation/containerlib-go/pkg/errors"
	"github.com/gluufederation/containerlib-go/pkg/manager"
	"github.com/gluufederation/containerlib-go/pkg/persistence"
	"github.com/gluufederation/containerlib-go/pkg/utils"
)

// RenderProperties renders the Couchbase properties template at src into
// dest, filling connection, credential, and bucket-mapping placeholders
// from the environment and the manager's secrets.
func RenderProperties(mgr *manager.Manager, src, dest string) error {
	persistenceType := persistence.TypeFromEnv()
	ldapMapping := persistence.LDAPMappingFromEnv()
	bucketPrefix := GetBucketPrefix()

	var buckets []string
	var mappingLines []string
	for _, mapping := range GetMappings(persistenceType, ldapMapping) {
		buckets = append(buckets, mapping.Bucket)
		if mapping.Mapping == "" {
			continue
		}
		mappingLines = append(mappingLines, fmt.Sprintf("bucket.%s.mapping: %s", mapping.Bucket, mapping.Mapping))
	}

	// The default bucket must always be listed, even when the default realm
	// is served elsewhere.
	if !slices.Contains(buckets, bucketPrefix) {
		buckets = append([]string{bucketPrefix}, buckets...)
	}

	encodedPassword, err := GetEncodedPassword(mgr)
	if err != nil {
		return err
	}

	truststorePass, err := ResolveTruststorePassword(mgr)
	if err != nil {
		return err
	}
	salt, err := mgr.Secret.Get("encoded_salt")
	if err != nil {
		return err
	}
	encodedTruststorePass, err := utils.EncodeText(truststorePass, salt)
	if err != nil {
		return err
	}

	truststoreFn, err := mgr.Config.Get("couchbaseTrustStoreFn")
	if err != nil {
		return err
	}
	if truststoreFn == "" {
		truststoreFn = "/etc/certs/couchbase.pkcs12"
	}

	tmpl, err := os.ReadFile(src)
	if err != nil {
		return errors.NewError(errors.ErrCodeConfigLoad,
			fmt.Sprintf("failed to read properties template: %v", err)).
			WithComponent("couchbase").
			WithContext("path", src).
			WithCause(err)
	}

	rendered := utils.SafeRender(string(tmpl), map[string]string{
		"hostname":                        GetHosts(),
		"couchbase_server_user":           GetUser(),
		"encoded_couchbase_server_pw":     encodedPassword,
		"couchbase_buckets":               strings.Join(buckets, ", "),
		"default_bucket":                  bucketPrefix,
		"couchbase_mappings":              strings.Join(mappingLines, "\n"),
		"encryption_method":               "SSHA-256",
		"ssl_enabled":                     strconv.FormatBool(GetTruststoreEnabled()),
		"couchbaseTrustStoreFn":           truststoreFn,
		"encoded_couchbaseTrustStorePass": encodedTruststorePass,
		"couchbase_conn_timeout":          strconv.Itoa(GetConnTimeout()),
		"couchbase_conn_max_wait":         strconv.Itoa(GetConnMaxWait()),
		"couchbase_scan_consistency":      GetScanConsistency(),
		"couchbase_keepalive_interval":    strconv.Itoa(GetKeepaliveInterval()),
		"couchbase_keepalive_timeout":     strconv.Itoa(GetKeepaliveTimeout()),
	})

	if err := os.WriteFile(dest, []byte(rendered), 0600); err != nil {
		return errors.NewError(errors.ErrCodeConfigSave,
			fmt.Sprintf("failed to write properties file: %v", err)).
			WithComponent("couchbase").
			WithContext("path", dest).
			WithCause(err)
	}
	return nil
}
