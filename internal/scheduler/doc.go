// Package scheduler runs the repeating phrase delivery jobs.
//
// # Jobs
//
// A Scheduler owns a registry of at most one job per conversation. Start
// replaces any existing job for the conversation; Stop removes it. Each job
// owns an immutable copy of the phrases it was started with, so later edits
// to the conversation's dictionaries never reach a running job.
//
// # Serialization
//
// Every tick acquires the conversation's lock from the shared convlock.Locker
// and re-checks that its job is still registered before advancing the cursor
// and delivering. Callers invoke Start and Stop while holding that same lock,
// which is what guarantees that no tick of a stopped job delivers after Stop
// returns. Ticks of different conversations run independently.
//
// # Timing
//
// Jobs tick at a fixed rate driven by time.Ticker: the first tick fires one
// period after Start, and each later tick is due one period after the previous
// scheduled time. A delivery that outlasts the period delays the next tick
// instead of overlapping it; ticks missed in the meantime are coalesced.
//
// # Shutdown
//
// Close cancels every job, aborts in-flight deliveries through their context
// and waits for all job goroutines to exit.
package scheduler
