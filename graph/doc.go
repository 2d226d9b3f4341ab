// Package graph folds per-chunk extractions into the stored knowledge graph.
//
// The Merger takes the successful results of an extraction run and merges
// them into entity and relationship repositories:
//
//   - Entities with the same normalized name become one node. Descriptions
//     are joined with core.DescriptionSeparator, the type is chosen by
//     majority vote and source chunks are unioned.
//   - Relationships merge on the unordered endpoint pair. Keywords are
//     unioned and weights summed.
//   - Relationship endpoints that were never extracted as entities are
//     created with type core.UnknownEntityType.
//
// A chunk already listed in a node's source chunks contributes nothing, so
// merging the same results twice leaves the graph unchanged.
//
// Entities whose embedding text changed are re-embedded in batches before
// anything is written.
//
// Example usage:
//
//	merger, err := graph.NewMerger(entityRepo, relationshipRepo, embedder)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stats, err := merger.Merge(ctx, results)
package graph
