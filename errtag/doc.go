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


// Package errtag annotates errors with provenance while keeping them usable
// as the errors they were.
//
// Tag attaches an identifying string (typically a chunk ID) to an error so
// its source can be traced once it surfaces in logs or status messages.
// Callers downstream still dispatch on the error's concrete type and read
// attributes such as "status_code", so tagging tries hard to hand back a
// value of the original type:
//
//  1. Reconstruct: errors implementing Reconstructor are rebuilt from their
//     stored arguments with the provenance inserted into the message
//     argument. Attributes the new value lacks are copied over.
//  2. Rewrite: errors implementing ArgsRewriter have their message argument
//     rewritten in place and the same value is returned.
//  3. Wrap: anything else is wrapped in an *Error whose text is
//     "provenance: original text". The original stays reachable through
//     errors.Unwrap.
//
// Tag never panics and never fails; a panic inside tier 1 or 2 moves on to
// the next tier.
//
// # Making an error taggable
//
// Embed Base to get stored arguments and attributes, then add Reconstruct
// when the type can be rebuilt from positional arguments alone:
//
//	type QuotaError struct {
//	    errtag.Base
//	}
//
//	func NewQuotaError(msg string) *QuotaError {
//	    return &QuotaError{Base: errtag.NewBase(msg)}
//	}
//
//	func (e *QuotaError) Error() string { return e.Message() }
//
//	func (e *QuotaError) Reconstruct(args []any) (error, error) {
//	    return &QuotaError{Base: errtag.NewBase(args...)}, nil
//	}
//
// Types that carry data their positional arguments cannot express should
// omit Reconstruct; Tag then rewrites them in place.
package errtag
