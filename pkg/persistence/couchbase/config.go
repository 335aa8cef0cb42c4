package couchbase

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gluufederation/containerlib-go/pkg/errors"
	"github.com/gluufederation/containerlib-go/pkg/manager"
	"github.com/gluufederation/containerlib-go/pkg/utils"
)

// Environment variables recognized by this package, with their defaults.
const (
	DefaultUser              = "admin"
	DefaultPasswordFile      = "/etc/gluu/conf/couchbase_password"
	DefaultSuperuserPassFile = "/etc/gluu/conf/couchbase_superuser_password"
	DefaultBucketPrefix      = "gluu"
	DefaultCertFile          = "/etc/certs/couchbase.crt"
	DefaultHostHeader        = "localhost"

	DefaultConnTimeout       = 10000
	DefaultConnMaxWait       = 20000
	DefaultScanConsistency   = "not_bounded"
	DefaultKeepaliveInterval = 30000
	DefaultKeepaliveTimeout  = 2500
)

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func intEnvOrDefault(key string, fallback int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return val
}

// GetHosts returns the comma-separated Couchbase host list from
// GLUU_COUCHBASE_URL.
func GetHosts() string {
	return envOrDefault("GLUU_COUCHBASE_URL", "localhost")
}

// GetUser returns the Couchbase admin username from GLUU_COUCHBASE_USER.
func GetUser() string {
	return envOrDefault("GLUU_COUCHBASE_USER", DefaultUser)
}

// GetPassword reads the Couchbase admin password from the file named by
// GLUU_COUCHBASE_PASSWORD_FILE. Surrounding whitespace is stripped.
func GetPassword() (string, error) {
	return readPasswordFile(envOrDefault("GLUU_COUCHBASE_PASSWORD_FILE", DefaultPasswordFile))
}

// GetEncodedPassword returns the admin password encoded with the
// deployment-wide salt stored under the encoded_salt secret.
func GetEncodedPassword(mgr *manager.Manager) (string, error) {
	return encodePassword(mgr, GetPassword)
}

// GetSuperuser returns the Couchbase superuser name from
// GLUU_COUCHBASE_SUPERUSER. Empty when the deployment has no superuser.
func GetSuperuser() string {
	return os.Getenv("GLUU_COUCHBASE_SUPERUSER")
}

// GetSuperuserPassword reads the superuser password from the file named by
// GLUU_COUCHBASE_SUPERUSER_PASSWORD_FILE.
func GetSuperuserPassword() (string, error) {
	return readPasswordFile(envOrDefault("GLUU_COUCHBASE_SUPERUSER_PASSWORD_FILE", DefaultSuperuserPassFile))
}

// GetEncodedSuperuserPassword returns the superuser password encoded with
// the deployment-wide salt stored under the encoded_salt secret.
func GetEncodedSuperuserPassword(mgr *manager.Manager) (string, error) {
	return encodePassword(mgr, GetSuperuserPassword)
}

// GetBucketPrefix returns the prefix shared by all bucket names, from
// GLUU_COUCHBASE_BUCKET_PREFIX.
func GetBucketPrefix() string {
	return envOrDefault("GLUU_COUCHBASE_BUCKET_PREFIX", DefaultBucketPrefix)
}

// GetConnTimeout returns the connect timeout in milliseconds from
// GLUU_COUCHBASE_CONN_TIMEOUT. Unparseable values fall back to the default.
func GetConnTimeout() int {
	return intEnvOrDefault("GLUU_COUCHBASE_CONN_TIMEOUT", DefaultConnTimeout)
}

// GetConnMaxWait returns the maximum connection wait in milliseconds from
// GLUU_COUCHBASE_CONN_MAX_WAIT. Unparseable values fall back to the default.
func GetConnMaxWait() int {
	return intEnvOrDefault("GLUU_COUCHBASE_CONN_MAX_WAIT", DefaultConnMaxWait)
}

// GetScanConsistency returns the N1QL scan consistency mode from
// GLUU_COUCHBASE_SCAN_CONSISTENCY. Values outside the supported set fall
// back to not_bounded.
func GetScanConsistency() string {
	opt := envOrDefault("GLUU_COUCHBASE_SCAN_CONSISTENCY", DefaultScanConsistency)
	switch opt {
	case "not_bounded", "request_plus", "statement_plus":
		return opt
	}
	return DefaultScanConsistency
}

// GetKeepaliveInterval returns the keep-alive interval in milliseconds from
// GLUU_COUCHBASE_KEEPALIVE_INTERVAL.
func GetKeepaliveInterval() int {
	return intEnvOrDefault("GLUU_COUCHBASE_KEEPALIVE_INTERVAL", DefaultKeepaliveInterval)
}

// GetKeepaliveTimeout returns the keep-alive timeout in milliseconds from
// GLUU_COUCHBASE_KEEPALIVE_TIMEOUT.
func GetKeepaliveTimeout() int {
	return intEnvOrDefault("GLUU_COUCHBASE_KEEPALIVE_TIMEOUT", DefaultKeepaliveTimeout)
}

// GetTruststoreEnabled reports whether connections use TLS and the secure
// service ports, from GLUU_COUCHBASE_TRUSTSTORE_ENABLE (default true).
func GetTruststoreEnabled() bool {
	return utils.AsBoolean(envOrDefault("GLUU_COUCHBASE_TRUSTSTORE_ENABLE", "true"))
}

func readPasswordFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewError(errors.ErrCodeCredentialRead,
			fmt.Sprintf("failed to read password file: %v", err)).
			WithComponent("couchbase").
			WithContext("path", path).
			WithCause(err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func encodePassword(mgr *manager.Manager, password func() (string, error)) (string, error) {
	plain, err := password()
	if err != nil {
		return "", err
	}
	salt, err := mgr.Secret.Get("encoded_salt")
	if err != nil {
		return "", err
	}
	return utils.EncodeText(plain, salt)
}
