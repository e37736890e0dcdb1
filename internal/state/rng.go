package state

// The random stream is part of canonical state: a single uint64 cursor that
// every committed action advances deterministically. Re-executing a turn
// from an archived snapshot therefore reproduces the same rolls without any
// process-local RNG state.

// nextRand advances a splitmix64 stream and returns the new cursor and the
// mixed output value.
func nextRand(cursor uint64) (next uint64, out uint64) {
	next = cursor + 0x9e3779b97f4a7c15
	z := next
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return next, z ^ (z >> 31)
}

// roll returns a value in [0, bound) drawn from the stream, plus the advanced
// cursor. bound must be positive.
func roll(cursor uint64, bound int) (next uint64, v int) {
	next, out := nextRand(cursor)
	return next, int(out % uint64(bound))
}
