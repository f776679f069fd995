// Package loader implements the seedbed loading engine: dependency-ordered,
// transactional loading and unloading of dataset definitions through a
// pluggable storage backend.
//
// Control flow for a load: the engine opens a fresh load queue and a backend
// transaction, then visits each top-level dataset. Dependencies are loaded
// recursively, one level deeper than their parent, strictly before the
// parent's own rows. Each row's deferred references are resolved against the
// objects the dependencies just persisted, the row is saved through the
// dataset's storage medium, and the dataset is registered in the queue at
// its level. On success the transaction commits; on any error it rolls back
// and the error propagates unchanged.
//
// Unloading drains the queue in ascending level order inside its own
// transaction. Because a shared dependency is always recorded at the
// maximum depth among its referencers, every dataset that depends on it is
// cleared first.
//
// Execution is single-threaded and synchronous: one engine runs at most one
// load or unload at a time, order being a correctness requirement rather
// than a scheduling concern.
package loader
