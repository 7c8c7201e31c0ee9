// Package resolve maps free-text names to concept identifiers.
//
// A lookup embeds the query text once, asks the vector index for the limit
// nearest points, and collapses hits that share a CURIE so that each concept
// appears once, at the position and score of its best-ranked synonym. The
// optional type and prefix filters are applied to that deduplicated list and
// never reorder it.
//
// Use LookupWithMonitor to observe each stage:
//
//	results, err := resolver.LookupWithMonitor(ctx, q, resolve.NewWriterMonitor(os.Stderr))
package resolve
