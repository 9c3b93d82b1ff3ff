// Package pool implements a fixed-size worker pool exposing two submission
// primitives: a barrier group (await-all) and an async map
// (consume-as-ready). It is the only parallelism primitive this repository
// uses; the CAD kernel itself is configured single-threaded so the pool and
// the kernel never compete for cores.
//
// The worker-goroutine shape follows github.com/grailbio/base/traverse's
// barrier-style Each and the producer/consumer channel pattern in
// encoding/bam/shardedbam.go; traverse.Each itself has no consume-as-ready
// primitive, so the async map is hand-written here.
package pool

import (
	"encoding/binary"
	"encoding/hex"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/log"
	"github.com/minio/highwayhash"
	"golang.org/x/sys/unix"
)

const (
	minWorkers = 1
	maxWorkers = 1024
)

// taskIDKey is a fixed, arbitrary seed: task IDs only need to be stable and
// well-distributed for a debug trace, not secret.
var taskIDKey = [highwayhash.Size]uint8{}

var taskSeq int64

// nextTaskID returns a short trace ID derived from a monotonic counter,
// logged around task dispatch so a --log.v=1 run can match a stall to the
// Submit call that caused it.
func nextTaskID() string {
	seq := atomic.AddInt64(&taskSeq, 1)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(seq))
	sum := highwayhash.Sum(buf[:], taskIDKey[:])
	return hex.EncodeToString(sum[:6])
}

// Pool is a fixed-size collection of worker goroutines draining a single
// shared task queue. Submission is safe from any goroutine; construction
// spawns the workers, Close joins them.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

// clampSize bounds n to [minWorkers, maxWorkers], defaulting to the host
// core count when n <= 0.
func clampSize(n int) int {
	if n <= 0 {
		n = hostCPUCount()
	}
	if n < minWorkers {
		n = minWorkers
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	return n
}

// hostCPUCount reports the number of CPUs this process can actually be
// scheduled on. runtime.NumCPU reports every CPU on the machine, which
// overcounts in a cgroup-limited container; SchedGetaffinity reports the
// calling thread's own affinity mask, which cgroups narrow correctly.
func hostCPUCount() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return runtime.NumCPU()
	}
	if n := set.Count(); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// New starts a pool of clampSize(workers) goroutines.
func New(workers int) *Pool {
	n := clampSize(workers)
	p := &Pool{tasks: make(chan func())}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer p.wg.Done()
			for fn := range p.tasks {
				fn()
			}
		}()
	}
	return p
}

// Close stops accepting new work once the last Submit returns, and blocks
// until every worker has drained the queue and exited. Destruction is a
// join: the pool never drops a task that was already submitted.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}

// Barrier returns a new BarrierGroup bound to this pool.
func (p *Pool) Barrier() *BarrierGroup {
	return &BarrierGroup{pool: p}
}

// BarrierGroup lets callers submit N thunks and wait for all N to complete
// with a single call. The zero value is not usable; construct via
// Pool.Barrier.
type BarrierGroup struct {
	pool *Pool
	wg   sync.WaitGroup
}

// Submit enqueues fn. Safe to call concurrently from multiple goroutines.
func (g *BarrierGroup) Submit(fn func()) {
	id := nextTaskID()
	g.wg.Add(1)
	g.pool.tasks <- func() {
		defer g.wg.Done()
		log.Debug.Printf("pool: task %s start", id)
		fn()
		log.Debug.Printf("pool: task %s done", id)
	}
}

// Wait blocks until every thunk submitted to this group has completed.
// Completion of a submitted task happens-before the returning Wait.
func (g *BarrierGroup) Wait() {
	g.wg.Wait()
}

// AsyncMap lets callers submit thunks returning a T and retrieve results in
// completion order, not submission order. The zero value is not usable;
// construct via NewAsyncMap.
type AsyncMap[T any] struct {
	pool        *Pool
	results     chan T
	outstanding int64 // submitted minus retrieved; atomic
}

// NewAsyncMap returns an AsyncMap bound to p.
func NewAsyncMap[T any](p *Pool) *AsyncMap[T] {
	return &AsyncMap[T]{pool: p, results: make(chan T)}
}

// Submit enqueues fn; its result becomes available to a future Get once fn
// completes, in whatever order completions actually occur.
func (m *AsyncMap[T]) Submit(fn func() T) {
	id := nextTaskID()
	atomic.AddInt64(&m.outstanding, 1)
	m.pool.tasks <- func() {
		log.Debug.Printf("pool: task %s start", id)
		v := fn()
		log.Debug.Printf("pool: task %s done", id)
		// Hand the result off without holding the worker, so finished
		// results wait for Get while the workers keep draining the queue.
		go func() { m.results <- v }()
	}
}

// Get blocks for the next available result. ok is false if Empty() was
// already true when Get was called — callers drive their consume loop with
// `for !m.Empty() { v, _ := m.Get(); ... }`.
func (m *AsyncMap[T]) Get() (result T, ok bool) {
	if atomic.LoadInt64(&m.outstanding) == 0 {
		return result, false
	}
	v := <-m.results
	atomic.AddInt64(&m.outstanding, -1)
	return v, true
}

// Empty reports whether no work is in flight and no completed result is
// waiting to be retrieved.
func (m *AsyncMap[T]) Empty() bool {
	return atomic.LoadInt64(&m.outstanding) == 0
}
