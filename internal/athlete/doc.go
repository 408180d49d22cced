// Package athlete defines the records, ports and error types shared by the
// ingestion pipeline: the cache store, fetcher, extractor, merger and sinks
// all speak in terms of the types declared here.
package athlete
