/*
Package metrics provides Prometheus metrics collection for the
persistence helpers.

# Overview

The package records two families of metrics: per-operation counters and
duration histograms for both persistence backends, and probe counters
for the host failover resolver. Metrics live in a collector-owned
registry; the library opens no listener of its own.

# Core Components

Collector: aggregates and exports metrics. The persistence clients share
one collector through Default().

	collector := metrics.Default()
	collector.RecordOperation("couchbase", "exec_query", elapsed, err)

Handler: entrypoints that serve metrics mount the collector's handler on
their own mux:

	mux.Handle("/metrics", metrics.Default().Handler())

# Metrics

	gluu_persistence_operations_total{backend, operation, status}
	gluu_persistence_operation_duration_seconds{backend, operation}
	gluu_persistence_host_probes_total{service, status}

Recording is cheap and safe for concurrent use; a disabled collector
turns every call into a no-op.
*/
package metrics
