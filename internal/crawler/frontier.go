package crawler

import (
	"net/url"
	"strings"
	"sync"

	"github.com/nao1215/tldcrawl/internal/model"
)

// Frontier is the FIFO of URLs waiting to be crawled plus the set of URLs
// already handed out.
//
// Design decision: Filtering happens on PopBatch rather than Push because:
//  1. Producers (strategies, workers) stay lock-free apart from one append
//  2. The visited check and the visited insert share one critical section,
//     so two workers can never receive the same URL
//  3. Items rejected for depth or target never reach the visited set
type Frontier struct {
	target   model.Target
	maxDepth int

	mu      sync.Mutex
	queue   []model.FrontierItem
	visited map[string]struct{}

	notify chan struct{}
}

// NewFrontier creates a Frontier accepting target URLs with depth below
// maxDepth.
func NewFrontier(target model.Target, maxDepth int) *Frontier {
	return &Frontier{
		target:   target,
		maxDepth: maxDepth,
		queue:    make([]model.FrontierItem, 0),
		visited:  make(map[string]struct{}),
		notify:   make(chan struct{}, 1),
	}
}

// Push appends items to the queue and wakes one waiter.
func (f *Frontier) Push(items ...model.FrontierItem) {
	if len(items) == 0 {
		return
	}
	f.mu.Lock()
	f.queue = append(f.queue, items...)
	f.mu.Unlock()

	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// PopBatch removes up to n acceptable items from the head of the queue and
// marks them visited. Visited, invalid, non-target and too-deep items are
// dropped on the way.
func (f *Frontier) PopBatch(n int) []model.FrontierItem {
	if n <= 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	batch := make([]model.FrontierItem, 0, n)
	consumed := 0
	for _, item := range f.queue {
		if len(batch) == n {
			break
		}
		consumed++

		if item.Depth >= f.maxDepth {
			continue
		}
		if !model.IsValidURL(item.URL) || !f.target.Matches(item.URL) {
			continue
		}
		key := NormalizeURL(item.URL)
		if _, seen := f.visited[key]; seen {
			continue
		}
		f.visited[key] = struct{}{}
		batch = append(batch, item)
	}

	// Release the consumed prefix so the backing array can be collected.
	clear(f.queue[:consumed])
	f.queue = f.queue[consumed:]
	return batch
}

// Len returns the number of queued items, including ones PopBatch will drop.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Visited returns the number of distinct URLs handed out.
func (f *Frontier) Visited() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// IsVisited reports whether rawURL was already handed out.
func (f *Frontier) IsVisited(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[NormalizeURL(rawURL)]
	return ok
}

// Notify returns a channel that receives after a Push. It is buffered with
// capacity one, so a burst of pushes yields a single wake-up.
func (f *Frontier) Notify() <-chan struct{} {
	return f.notify
}

// MaxDepth returns the depth bound.
func (f *Frontier) MaxDepth() int {
	return f.maxDepth
}

// NormalizeURL returns the visited-set key for pageURL.
//
// Design decision: We normalize URLs because:
//  1. Same page can have different URL representations
//  2. Fragment (#anchor) doesn't change content
//  3. Trailing slashes may or may not be significant
func NormalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// http://example.rw and http://example.rw/ are the same page.
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
