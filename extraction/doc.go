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


// Package extraction runs an entity extractor over many chunks under a
// bounded concurrency budget.
//
// The Executor starts one unit of work per chunk and admits at most the
// configured number of extractor calls at a time. A chunk whose extraction
// fails is isolated: its error is tagged with the chunk ID (see package
// errtag), logged, reported to the shared Status if one was supplied, and
// dropped. The run continues and returns whatever succeeded, which may be
// nothing at all.
//
// Cancellation is the exception. An extractor returning an error that
// matches ErrPipelineCancelled, or a cancelled parent context, aborts the
// whole run: no further chunks are admitted, in-flight work is abandoned, and
// the cancellation error is returned to the caller unchanged. Status also
// carries an advisory cancellation flag that is checked before each chunk
// starts.
//
// The executor never retries. Retrying transient failures is the
// extractor's business.
package extraction
