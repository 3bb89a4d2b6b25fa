// Package core implements the part catalog domain: importing catalog files,
// inferring route templates from free-text operation lists and creating
// parts one at a time.
//
// # Import flow
//
// [Service.ImportParts] streams a catalog through the tabular parser. Each
// record is written in its own transaction:
//
//  1. Skip the row when a part with the same designation code exists
//  2. Resolve the route template from the operations cell (see [ResolveRoute])
//  3. Insert the part and commit
//  4. Publish a part_created notification
//
// A failing row never affects rows that were already committed. Only
// stream-level problems (unreadable file, no header, size limit) abort an
// import, and then no counts are reported.
//
// # Route templates
//
// A template's identity is the ordered list of its stage names joined with
// " -> ". "Ток,Фр" and "Фр,Ток" are different templates. Stages and templates
// are created with insert-or-ignore on their unique names, so concurrent
// imports converge on the same rows.
//
// # Storage
//
// The package talks to storage through [Store] and [Tx]; Postgres and SQLite
// implementations live under internal/store.
package core
