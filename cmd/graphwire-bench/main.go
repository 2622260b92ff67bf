// Command graphwire-bench drives many concurrent Kernel.Encode/Decode
// round trips through a bounded goroutine pool, exercising spec §5's
// "one facade used concurrently by many threads" concurrency model.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/graphwire/graphwire/internal/concpool"
	"github.com/graphwire/graphwire/kernel"
)

type payload struct {
	ID       int64
	Name     string
	Tags     []string
	Children []*payload
}

func main() {
	workers := flag.Int("workers", 8, "pool size")
	rounds := flag.Int("rounds", 10000, "number of round trips")
	flag.Parse()

	k, err := kernel.New()
	if err != nil {
		log.Fatalf("create kernel: %v", err)
	}

	pool, err := concpool.New(*workers)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		okCount  int64
		errCount int64
	)

	start := time.Now()
	for i := 0; i < *rounds; i++ {
		i := i
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if roundTrip(k, i) {
				atomic.AddInt64(&okCount, 1)
			} else {
				atomic.AddInt64(&errCount, 1)
			}
		})
		if err != nil {
			wg.Done()
			atomic.AddInt64(&errCount, 1)
		}
	}
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Printf("workers=%d rounds=%d ok=%d err=%d elapsed=%s throughput=%.0f/s\n",
		*workers, *rounds, okCount, errCount, elapsed, float64(*rounds)/elapsed.Seconds())
}

func roundTrip(k *kernel.Kernel, seed int) bool {
	p := &payload{ID: int64(seed), Name: fmt.Sprintf("item-%d", seed), Tags: []string{"a", "b"}}
	p.Children = []*payload{p} // self-reference, to also exercise the reference engine

	var buf bytes.Buffer
	if err := kernel.Encode(k, &buf, p); err != nil {
		return false
	}
	got, err := kernel.Decode[*payload](k, &buf)
	if err != nil {
		return false
	}
	return got.ID == p.ID && got.Children[0] == got
}
