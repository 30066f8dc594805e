package seen

import "context"

// Store records alert ids that were dispatched.
type Store interface {
	// MarkSeen inserts id and reports whether it was absent before the call.
	// Check and insert happen atomically.
	MarkSeen(ctx context.Context, id int64) (bool, error)
	// Contains reports whether id is currently remembered.
	Contains(ctx context.Context, id int64) (bool, error)
}

// Snapshotter is implemented by stores whose contents can be persisted
// and restored by the process itself.
type Snapshotter interface {
	// Snapshot returns the remembered ids, oldest first.
	Snapshot() []int64
	// Restore re-inserts ids, oldest first.
	Restore(ids []int64)
}
