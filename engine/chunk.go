package engine

// DefaultChunkCeiling bounds the length of a single transfer call. 2MB is
// large enough to amortize syscall overhead but keeps progress callbacks at
// a useful granularity and stays well under platform sendfile size limits.
const DefaultChunkCeiling = 2 * 1024 * 1024

// Planner slices a file into (offset, length) ranges no longer than the
// ceiling. It is pure: the session feeds it the remaining byte count and
// advances the offset only by bytes the sink actually accepted, so the
// emitted ranges tile [0, size) exactly even across retries and partial
// writes.
type Planner struct {
	ceiling int64
}

// NewPlanner creates a Planner with the given chunk ceiling.
// A ceiling <= 0 selects DefaultChunkCeiling.
func NewPlanner(ceiling int64) Planner {
	if ceiling <= 0 {
		ceiling = DefaultChunkCeiling
	}
	return Planner{ceiling: ceiling}
}

// Ceiling returns the configured maximum chunk length.
func (p Planner) Ceiling() int64 { return p.ceiling }

// Next returns the length of the next range given the bytes still to send.
func (p Planner) Next(remaining int64) int64 {
	if remaining < p.ceiling {
		return remaining
	}
	return p.ceiling
}

// Count returns how many full-progress chunks a file of the given size
// needs. Partial writes can only increase the number of transfer calls,
// never decrease it below this.
func (p Planner) Count(size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (size + p.ceiling - 1) / p.ceiling
}
