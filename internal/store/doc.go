// Package store provides SQLite-backed durable storage for the point-of-sale core.
//
// The store holds five collections:
//   - shops: the device's single shop (0 rows before onboarding, 1 after)
//   - products: the catalog, searchable by barcode and by name prefix
//   - transactions: committed sales, immutable except for the sync flag
//   - transaction_items: sold lines captured by value, immutable
//   - daily_reports: frozen day-close totals, one per (shop, business date)
//
// # Critical Patterns
//
// Atomic batches:
//   - RunAtomic executes a batch of writes in one SQL transaction
//   - A failing batch rolls back completely; a Transaction is never visible
//     without its TransactionItems
//
// Single writer:
//   - Every write takes the writer mutex, so batches never interleave
//   - Observers are notified only after commit, never mid-batch
//
// Deterministic query results:
//   - All list queries include an ORDER BY with id as the final tie-breaker
//
// Immutability:
//   - Triggers reject updates to committed sales and reports other than the
//     sync flag
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=FULL: A commit is durable once it returns
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Subscribers also see commits made by other processes on the same file:
// PRAGMA data_version is polled while any subscription is live.
//
// Schema changes are embedded migrations applied with golang-migrate.
package store
