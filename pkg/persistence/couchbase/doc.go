// Package couchbase provides REST-based access to a Couchbase cluster for
// container entrypoints that provision buckets, users, and indexes during
// startup.
//
// Couchbase exposes its management plane and its query plane as two separate
// HTTP services, each on its own well-known port pair (plain and TLS). The
// package mirrors that split:
//
//   - RestClient talks to the data/management service (port 8091, or 18091
//     with the truststore enabled) for bucket and user administration.
//   - N1QLClient talks to the query service (port 8093, or 18093 with the
//     truststore enabled) for N1QL statements.
//
// Both clients accept a comma-separated list of candidate hosts and probe
// them in order with a service-specific healthcheck, settling on the first
// host that answers with a non-error status. Client, the facade, constructs
// the service clients lazily and memoizes them for the lifetime of the
// process; a cluster where no candidate answers yields a fatal
// HOST_RESOLUTION error naming the service and the host list.
//
// Configuration is taken from GLUU_COUCHBASE_* environment variables, with
// credentials read from mounted files and secrets obtained through a
// manager.Manager. See config.go for the full list of recognized variables
// and their defaults.
//
// Example usage:
//
//	client := couchbase.NewClient(
//		os.Getenv("GLUU_COUCHBASE_URL"),
//		couchbase.GetUser(),
//		password,
//	)
//	resp, err := client.GetBuckets(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer resp.Body.Close()
package couchbase
