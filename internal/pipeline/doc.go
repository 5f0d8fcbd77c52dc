// Package pipeline runs a per-file processor over many paths on a bounded
// worker pool.
//
// A producer feeds paths into a jobs channel, a fixed number of workers
// pull from it and push results into a results channel, and the caller's
// goroutine collects records until the workers are done. Workers share no
// mutable state besides atomic counters, and the collected records are in
// no particular order. Goroutine lifetimes are tied together with an
// errgroup so cancellation of the caller's context unwinds all of them.
package pipeline
