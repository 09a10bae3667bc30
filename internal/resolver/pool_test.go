package resolver

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	cdnerrors "github.com/m333rl1n/cdnx/internal/errors"
	"github.com/m333rl1n/cdnx/internal/ranges"
)

// fakeLookuper maps hostnames to fixed addresses; unknown hosts fail.
type fakeLookuper struct {
	hosts map[string]string
}

func (f *fakeLookuper) LookupA(ctx context.Context, host string) (netip.Addr, error) {
	if ip, ok := f.hosts[host]; ok {
		return netip.MustParseAddr(ip), nil
	}
	return netip.Addr{}, cdnerrors.NewDNSError("no A record for "+host, nil)
}

// blockingLookuper never answers until the context is cancelled.
type blockingLookuper struct{}

func (b *blockingLookuper) LookupA(ctx context.Context, host string) (netip.Addr, error) {
	<-ctx.Done()
	return netip.Addr{}, cdnerrors.NewDNSError("lookup cancelled", ctx.Err())
}

func testRangeSet(t *testing.T, cidrs ...string) *ranges.RangeSet {
	t.Helper()
	blocks := make([]ranges.CIDRBlock, 0, len(cidrs))
	for _, cidr := range cidrs {
		block, err := ranges.ParseBlock(cidr)
		if err != nil {
			t.Fatalf("bad test CIDR %q: %v", cidr, err)
		}
		blocks = append(blocks, block)
	}
	return ranges.Build(blocks)
}

func feed(hosts ...string) <-chan string {
	in := make(chan string, len(hosts))
	for _, host := range hosts {
		in <- host
	}
	close(in)
	return in
}

func collect(t *testing.T, out <-chan Classification) map[string]Classification {
	t.Helper()
	results := make(map[string]Classification)
	for result := range out {
		if _, dup := results[result.Host]; dup {
			t.Errorf("host %s classified twice", result.Host)
		}
		results[result.Host] = result
	}
	return results
}

func TestPool_ClassifiesHosts(t *testing.T) {
	set := testRangeSet(t, "104.16.0.0/13", "151.101.0.0/16")
	lookup := &fakeLookuper{hosts: map[string]string{
		"medium.com": "104.16.120.127",
		"ford.com":   "19.12.66.101",
		"fastly.com": "151.101.65.140",
	}}

	pool := NewPool(lookup, set, 4, time.Second)
	results := collect(t, pool.Run(context.Background(), feed("medium.com", "ford.com", "fastly.com", "no-such-host.invalid")))

	if len(results) != 4 {
		t.Fatalf("got %d result(s), want 4", len(results))
	}

	if r := results["medium.com"]; r.Err != nil || !r.CDN {
		t.Errorf("medium.com: CDN=%v err=%v, want CDN behind no error", r.CDN, r.Err)
	}
	if r := results["fastly.com"]; r.Err != nil || !r.CDN {
		t.Errorf("fastly.com: CDN=%v err=%v, want CDN behind no error", r.CDN, r.Err)
	}
	if r := results["ford.com"]; r.Err != nil || r.CDN {
		t.Errorf("ford.com: CDN=%v err=%v, want non-CDN with no error", r.CDN, r.Err)
	}

	failed := results["no-such-host.invalid"]
	if failed.Err == nil {
		t.Fatal("unresolvable host produced no error")
	}
	if !errors.Is(failed.Err, &cdnerrors.Error{Code: cdnerrors.ErrCodeDNS}) {
		t.Errorf("unresolvable host error code mismatch: %v", failed.Err)
	}
	if failed.Addr.IsValid() {
		t.Errorf("unresolvable host carries address %s", failed.Addr)
	}
}

func TestPool_LiteralAddressInput(t *testing.T) {
	set := testRangeSet(t, "104.16.0.0/13")
	lookup := &fakeLookuper{hosts: map[string]string{
		"104.18.32.7": "104.18.32.7",
		"8.8.8.8":     "8.8.8.8",
	}}

	pool := NewPool(lookup, set, 2, time.Second)
	results := collect(t, pool.Run(context.Background(), feed("104.18.32.7", "8.8.8.8")))

	if r := results["104.18.32.7"]; !r.CDN {
		t.Error("in-range literal not classified as CDN")
	}
	if r := results["8.8.8.8"]; r.CDN {
		t.Error("out-of-range literal classified as CDN")
	}
}

func TestPool_WorkerCountDoesNotChangeResults(t *testing.T) {
	set := testRangeSet(t, "104.16.0.0/13")
	hosts := map[string]string{}
	var input []string
	for i := 0; i < 50; i++ {
		host := string(rune('a'+i%26)) + "-host.example"
		if _, seen := hosts[host]; seen {
			continue
		}
		if i%2 == 0 {
			hosts[host] = "104.17.0.1"
		} else {
			hosts[host] = "20.0.0.1"
		}
		input = append(input, host)
	}
	lookup := &fakeLookuper{hosts: hosts}

	single := collect(t, NewPool(lookup, set, 1, time.Second).Run(context.Background(), feed(input...)))
	wide := collect(t, NewPool(lookup, set, 100, time.Second).Run(context.Background(), feed(input...)))

	if len(single) != len(wide) {
		t.Fatalf("result counts differ: %d vs %d", len(single), len(wide))
	}
	for host, want := range single {
		got, ok := wide[host]
		if !ok {
			t.Errorf("host %s missing from wide-pool results", host)
			continue
		}
		if got.CDN != want.CDN || got.Addr != want.Addr {
			t.Errorf("host %s: %+v vs %+v", host, got, want)
		}
	}
}

func TestPool_ZeroWorkersClampedToOne(t *testing.T) {
	set := testRangeSet(t, "104.16.0.0/13")
	lookup := &fakeLookuper{hosts: map[string]string{"medium.com": "104.16.120.127"}}

	results := collect(t, NewPool(lookup, set, 0, time.Second).Run(context.Background(), feed("medium.com")))
	if len(results) != 1 {
		t.Fatalf("got %d result(s), want 1", len(results))
	}
}

func TestPool_ContextCancellationStopsWorkers(t *testing.T) {
	set := testRangeSet(t)
	ctx, cancel := context.WithCancel(context.Background())

	in := make(chan string, 3)
	in <- "a.example"
	in <- "b.example"
	in <- "c.example"

	out := NewPool(&blockingLookuper{}, set, 2, 0).Run(ctx, in)
	cancel()

	done := make(chan struct{})
	go func() {
		for range out {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not shut down after context cancellation")
	}
}
