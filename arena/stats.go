package arena

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats is a snapshot of arena usage.
//
// Note on semantics:
//   - Used: bump cursor, including alignment padding; never decreases
//   - FreeBytes: bytes sitting in the free list, reusable by later requests
//   - BumpWaste: padding skipped by bump allocations
//   - ReuseWaste: alignment prefixes dropped when carving free blocks; lost for good
//   - Reclaimable: Remaining + FreeBytes, the most the arena could still hand out
type Stats struct {
	Capacity    int
	Used        int
	Remaining   int
	FreeBlocks  int
	FreeBytes   int
	Reclaimable int
	BumpWaste   int
	ReuseWaste  int
	Allocs      uint64 // Historical: successful allocations
	Reuses      uint64 // Historical: allocations served from the free list
	Deallocs    uint64 // Historical: regions appended to the free list
	Failures    uint64 // Historical: out-of-memory results
	Utilization float64
}

// Stats returns the current arena statistics.
func (r *Resource) Stats() Stats {
	freeBytes := r.FreeBytes()
	s := Stats{
		Capacity:    len(r.buf),
		Used:        r.used,
		Remaining:   r.Remaining(),
		FreeBlocks:  len(r.free),
		FreeBytes:   freeBytes,
		Reclaimable: r.Remaining() + freeBytes,
		BumpWaste:   r.stats.bumpWaste,
		ReuseWaste:  r.stats.reuseWaste,
		Allocs:      r.stats.allocs,
		Reuses:      r.stats.reuses,
		Deallocs:    r.stats.deallocs,
		Failures:    r.stats.failures,
	}
	if s.Capacity > 0 {
		s.Utilization = float64(s.Used) / float64(s.Capacity)
	}
	return s
}

func (r *Resource) String() string {
	s := r.Stats()
	name := r.name
	if name == "" {
		name = "-"
	}
	return fmt.Sprintf(
		"Arena{name: %s, capacity: %s, used: %s (%.1f%%), free: %d blocks / %s, lost to alignment: %s, allocs: %d}",
		name,
		humanize.IBytes(uint64(s.Capacity)),
		humanize.IBytes(uint64(s.Used)),
		s.Utilization*100,
		s.FreeBlocks,
		humanize.IBytes(uint64(s.FreeBytes)),
		humanize.IBytes(uint64(s.BumpWaste+s.ReuseWaste)),
		s.Allocs,
	)
}
