// Package persistence holds the shared vocabulary for the supported
// persistence backends. The concrete client implementations live in the
// couchbase and sql subpackages.
package persistence

import "os"

// Type identifies which persistence backend a deployment uses.
type Type string

const (
	LDAP      Type = "ldap"
	Couchbase Type = "couchbase"
	Hybrid    Type = "hybrid"
	SQL       Type = "sql"
)

// TypeFromEnv returns the deployment's persistence type from
// GLUU_PERSISTENCE_TYPE, defaulting to couchbase.
func TypeFromEnv() Type {
	if val := os.Getenv("GLUU_PERSISTENCE_TYPE"); val != "" {
		return Type(val)
	}
	return Couchbase
}

// LDAPMappingFromEnv returns which logical realm is served by LDAP in a
// hybrid deployment, from GLUU_PERSISTENCE_LDAP_MAPPING (default
// "default").
func LDAPMappingFromEnv() string {
	if val := os.Getenv("GLUU_PERSISTENCE_LDAP_MAPPING"); val != "" {
		return val
	}
	return "default"
}
