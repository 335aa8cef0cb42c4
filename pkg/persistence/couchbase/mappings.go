package couchbase

import (
	"fmt"

	"github.com/gluufederation/containerlib-go/pkg/persistence"
)

// BucketMapping associates a logical data realm with the bucket that holds
// it and the document trees routed there.
type BucketMapping struct {
	// Name is the logical realm (default, user, cache, site, token,
	// session).
	Name string

	// Bucket is the concrete bucket name, including the deployment prefix.
	Bucket string

	// Mapping lists the document trees stored in the bucket. Empty for the
	// default realm, which holds everything not claimed elsewhere.
	Mapping string
}

// PrefixedMappings returns the full set of bucket mappings with the
// configured bucket prefix applied, in rendering order.
func PrefixedMappings() []BucketMapping {
	prefix := GetBucketPrefix()
	return []BucketMapping{
		{Name: "default", Bucket: prefix, Mapping: ""},
		{Name: "user", Bucket: fmt.Sprintf("%s_user", prefix), Mapping: "people, groups, authorizations"},
		{Name: "cache", Bucket: fmt.Sprintf("%s_cache", prefix), Mapping: "cache"},
		{Name: "site", Bucket: fmt.Sprintf("%s_site", prefix), Mapping: "cache-refresh"},
		{Name: "token", Bucket: fmt.Sprintf("%s_token", prefix), Mapping: "tokens"},
		{Name: "session", Bucket: fmt.Sprintf("%s_session", prefix), Mapping: "sessions"},
	}
}

// GetMappings returns the bucket mappings Couchbase is responsible for. In a
// hybrid deployment the realm served by LDAP is excluded.
func GetMappings(persistenceType persistence.Type, ldapMapping string) []BucketMapping {
	mappings := PrefixedMappings()
	if persistenceType != persistence.Hybrid {
		return mappings
	}

	filtered := make([]BucketMapping, 0, len(mappings))
	for _, mapping := range mappings {
		if mapping.Name == ldapMapping {
			continue
		}
		filtered = append(filtered, mapping)
	}
	return filtered
}
