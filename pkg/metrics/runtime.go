package metrics

import (
	"runtime"
	"time"
)

// CollectRuntime samples Go runtime statistics into gauges named with the
// given prefix, every interval, until the process exits.
func (r *Registry) CollectRuntime(prefix string, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	goroutines := r.Gauge(prefix+"_goroutines", "Number of goroutines")
	heapAlloc := r.Gauge(prefix+"_heap_alloc_bytes", "Bytes of allocated heap objects")
	heapSys := r.Gauge(prefix+"_heap_sys_bytes", "Bytes of heap obtained from the OS")
	gcCycles := r.Gauge(prefix+"_gc_cycles_total", "Completed GC cycles")

	sample := func() {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		goroutines.Set(int64(runtime.NumGoroutine()))
		heapAlloc.Set(int64(ms.HeapAlloc))
		heapSys.Set(int64(ms.HeapSys))
		gcCycles.Set(int64(ms.NumGC))
	}

	sample()
	go func() {
		for range time.Tick(interval) {
			sample()
		}
	}()
}
