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


// Package search finds entities in the extracted knowledge graph.
//
// The Searcher combines three signals:
//   - Semantic search over entity description embeddings
//   - Exact lookup of the query as an entity name
//   - Verbatim matching of query words against entity names, with stop-word filtering
//
// Neighbors walks one hop from an entity along its relationships.
package search
