// Package resource governs process-wide limits shared by many arenas.
//
// A Controller tracks two resources:
//
//   - Memory: a hard budget for arena backing buffers (non-blocking, fail-fast)
//   - IO: a token bucket that throttles snapshot reads and writes
//
// # Memory Budget
//
// Arenas reserve their whole capacity from the budget once, at construction,
// and hand it back when closed. A refused reservation surfaces to the arena
// caller as an out-of-memory failure; there is no waiting and no retry:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20, // 64MiB across all arenas
//	})
//
//	a, err := arena.New(1<<20, arena.WithMemoryBudget(rc))
//
// # IO Rate Limiting
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 32 << 20,
//	})
//
//	w := resource.NewRateLimitedWriter(ctx, file, rc)
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use. A nil *Controller is
// valid and imposes no limits.
package resource
