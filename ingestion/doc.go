// Package ingestion builds a vector index from a synonym corpus.
//
// A Pipeline recreates the target collection, streams records from a
// source.Source, expands each accepted record into one embedding unit per
// name, and flushes fixed-size batches: one embedding call, then one upsert.
// Points receive contiguous identities starting at 0 for every run.
//
// Skipped source entries are counted and logged but never abort a run.
// Embedding and upsert calls are retried with exponential backoff when the
// failure is transient; any other failure aborts the run.
//
// With pipelining enabled, the upsert of batch N runs on a single-worker
// pool while batch N+1 is being embedded. At most one upsert is in flight.
package ingestion
