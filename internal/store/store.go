// Package store persists catalog snapshots in PostgreSQL.
package store

import "github.com/voyagen/channelvault/internal/cache"

// KeepSnapshots is how many snapshots Save retains; older rows are pruned.
const KeepSnapshots = 10

var _ cache.Store = (*Postgres)(nil)
