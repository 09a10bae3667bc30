package resolver

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/m333rl1n/cdnx/internal/ranges"
)

// Classification is the outcome of resolving and classifying one host.
// Err is set for hosts whose resolution failed; such hosts carry no address
// and no verdict.
type Classification struct {
	Host string
	Addr netip.Addr
	CDN  bool
	Err  error
}

// Pool classifies a stream of hostnames against a range set using a fixed
// number of concurrent resolver workers.
type Pool struct {
	lookup  Lookuper
	set     *ranges.RangeSet
	workers int
	timeout time.Duration
}

// NewPool creates a pool with the given worker count. Counts below one are
// clamped to one.
func NewPool(lookup Lookuper, set *ranges.RangeSet, workers int, timeout time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		lookup:  lookup,
		set:     set,
		workers: workers,
		timeout: timeout,
	}
}

// Run consumes hostnames from in and emits one Classification per host. The
// output channel is closed once all workers drain; result order follows
// completion, not input. Cancelling ctx stops the workers after their current
// lookup.
func (p *Pool) Run(ctx context.Context, in <-chan string) <-chan Classification {
	out := make(chan Classification)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx, in, out)
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

func (p *Pool) work(ctx context.Context, in <-chan string, out chan<- Classification) {
	for {
		select {
		case <-ctx.Done():
			return
		case host, ok := <-in:
			if !ok {
				return
			}

			result := p.classify(ctx, host)

			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Pool) classify(ctx context.Context, host string) Classification {
	lookupCtx, cancel := lookupDeadline(ctx, p.timeout)
	defer cancel()

	addr, err := p.lookup.LookupA(lookupCtx, host)
	if err != nil {
		return Classification{Host: host, Err: err}
	}

	return Classification{
		Host: host,
		Addr: addr,
		CDN:  p.set.Contains(addr),
	}
}
