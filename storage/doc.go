// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage defines the repositories that hold the knowledge graph.
//
// EntityRepository stores one entity per normalized name, keeps a name
// index and answers vector similarity queries. RelationshipRepository stores
// undirected relationships keyed by their endpoint pair and maintains an
// adjacency index per entity. Values are JSON encoded (see
// serialization.go); key layout belongs to the backend.
//
// The badger package is the only implementation. Its constructors return
// concrete types so tests can reach helpers outside the interfaces, while
// the merger, searcher and re-embedder depend on the interfaces:
//
//	backend, err := badger.OpenBackend("/path/to/graph", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	var entities storage.EntityRepository = badger.NewEntityRepository(backend)
//
// Repositories are safe for concurrent use. Lookups that find nothing
// return ErrNotFound; anything after the backend is closed returns
// ErrStorageClosed.
package storage
