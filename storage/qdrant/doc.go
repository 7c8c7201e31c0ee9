// Package qdrant implements storage.VectorIndex against a Qdrant server
// over gRPC.
//
// Points use numeric ids equal to their identity. The payload is stored
// flat under the keys id, label, synonyms, types, category and
// embedded_label. Transport failures that are worth retrying are wrapped
// with core.ErrUnavailable; a missing collection becomes
// storage.ErrCollectionNotFound.
package qdrant
