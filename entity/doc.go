// Package entity provides the named nodes of a dynamic-graph and the
// registry that owns them.
//
// # Overview
//
// An Entity bundles a directory of signals, a directory of commands and
// a diagnostic logger under a unique instance name. Concrete entity
// types embed *Entity, register their signals and commands during
// construction, and expose whatever typed accessors their callers need.
//
// The Registry has two sides. The class table maps class names to
// factories, letting configuration files and remote callers build graphs
// by name. The instance pool maps entity names to live entities and
// enforces name uniqueness for the lifetime of each instance: a second
// construction under a live name fails, and the name becomes free again
// the moment the holder is destroyed.
//
// # Lifecycle
//
// Registration is the final step of base construction, so every entity
// in the pool started with empty directories and filled them in before
// anything could observe it. Destroy reverses that order: the entity
// leaves the pool first, then its signals are revoked and its
// resource-owning commands closed. Code holding a signal reference
// across a Destroy sees ErrUnregisteredAccess on the next read instead
// of a silently stale value.
package entity
