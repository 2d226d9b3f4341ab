// Package reembed regenerates the embeddings of every stored entity with
// new or updated embedding models.
//
// This package supports batch processing of entities, progress tracking,
// retry with exponential backoff, and vector normalization to ensure
// compatibility with cosine similarity search.
package reembed
