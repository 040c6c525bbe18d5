package repository

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/unicitynetwork/Boxy-Run/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Each partition is a treap keyed by SK and augmented with subtree sizes.
// The BST comparator puts larger keys on the left, so an in-order walk
// yields rows highest score first and range counts cost O(log n).

const (
	memoryBackend                = "memory"
	defaultMetricsUpdateInterval = 5 * time.Second
)

// treap node
type node struct {
	sk    string
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// before reports whether key a is walked before key b (descending order).
func before(a, b string) bool { return a > b }

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, sk string, prio uint64) *node {
	if n == nil {
		return &node{sk: sk, prio: prio, size: 1}
	}
	switch {
	case sk == n.sk:
		return n
	case before(sk, n.sk):
		n.left = insert(n.left, sk, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	default:
		n.right = insert(n.right, sk, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, sk string) *node {
	if n == nil {
		return nil
	}
	switch {
	case sk == n.sk:
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, sk)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, sk)
		}
	case before(sk, n.sk):
		n.left = deleteNode(n.left, sk)
	default:
		n.right = deleteNode(n.right, sk)
	}
	fix(n)
	return n
}

// countAbove counts keys strictly greater than bound.
func countAbove(n *node, bound string) int {
	total := 0
	for n != nil {
		if n.sk > bound {
			total += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return total
}

// countAtLeast counts keys greater than or equal to bound.
func countAtLeast(n *node, bound string) int {
	total := 0
	for n != nil {
		if n.sk >= bound {
			total += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return total
}

// collectDesc appends keys in [lo, hi) highest first until limit is reached.
// An empty hi means no upper bound.
func collectDesc(n *node, lo, hi string, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	if hi != "" && n.sk >= hi {
		collectDesc(n.right, lo, hi, limit, out)
		return
	}
	if n.sk < lo {
		collectDesc(n.left, lo, hi, limit, out)
		return
	}
	collectDesc(n.left, lo, hi, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.sk)
	}
	collectDesc(n.right, lo, hi, limit, out)
}

// prefixEnd returns the smallest key greater than every key starting with
// prefix, or "" if no such key exists.
func prefixEnd(prefix string) string {
	end := []byte(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return string(end[:i+1])
		}
	}
	return ""
}

type partition struct {
	root  *node
	items map[string]Item
}

type itemRef struct {
	pk string
	sk string
}

func indexKey(nickname, date string) string { return nickname + "\x00" + date }

// TreapStore keeps every partition in memory.
type TreapStore struct {
	mu    sync.RWMutex
	parts map[string]*partition
	index map[string]map[itemRef]struct{}

	priority              func() uint64
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTreapStore constructs a treap store and starts its metrics updater.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		parts:                 make(map[string]*partition),
		index:                 make(map[string]map[itemRef]struct{}),
		priority:              rand.Uint64,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics goroutine.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Put implements Store.Put in O(log n) expected time.
func (s *TreapStore) Put(ctx context.Context, it Item) error {
	defer observe("put", time.Now())
	if it.PK == "" || it.SK == "" {
		metrics.RecordErrorByComponent("repository", "invalid_key")
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.parts[it.PK]
	if !ok {
		p = &partition{items: make(map[string]Item)}
		s.parts[it.PK] = p
	}
	if old, exists := p.items[it.SK]; exists {
		s.unindex(old)
	} else {
		p.root = insert(p.root, it.SK, s.priority())
	}
	p.items[it.SK] = it
	s.reindex(it)
	return nil
}

// Delete implements Store.Delete.
func (s *TreapStore) Delete(ctx context.Context, pk, sk string) error {
	defer observe("delete", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(pk, sk)
	return nil
}

func (s *TreapStore) deleteLocked(pk, sk string) bool {
	p, ok := s.parts[pk]
	if !ok {
		return false
	}
	old, ok := p.items[sk]
	if !ok {
		return false
	}
	s.unindex(old)
	delete(p.items, sk)
	p.root = deleteNode(p.root, sk)
	if len(p.items) == 0 {
		delete(s.parts, pk)
	}
	return true
}

func (s *TreapStore) reindex(it Item) {
	if !it.Indexed() {
		return
	}
	k := indexKey(it.Nickname, it.Date)
	refs, ok := s.index[k]
	if !ok {
		refs = make(map[itemRef]struct{})
		s.index[k] = refs
	}
	refs[itemRef{pk: it.PK, sk: it.SK}] = struct{}{}
}

func (s *TreapStore) unindex(it Item) {
	if !it.Indexed() {
		return
	}
	k := indexKey(it.Nickname, it.Date)
	if refs, ok := s.index[k]; ok {
		delete(refs, itemRef{pk: it.PK, sk: it.SK})
		if len(refs) == 0 {
			delete(s.index, k)
		}
	}
}

// QueryDesc implements Store.QueryDesc.
func (s *TreapStore) QueryDesc(ctx context.Context, pk, prefix string, limit int) ([]Item, error) {
	defer observe("query", time.Now())
	if limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.parts[pk]
	if !ok {
		return []Item{}, nil
	}
	keys := make([]string, 0, min(limit, len(p.items)))
	collectDesc(p.root, prefix, prefixEnd(prefix), limit, &keys)
	out := make([]Item, len(keys))
	for i, k := range keys {
		out[i] = p.items[k]
	}
	return out, nil
}

// CountPrefix implements Store.CountPrefix in O(log n).
func (s *TreapStore) CountPrefix(ctx context.Context, pk, prefix string) (int, error) {
	defer observe("count", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.parts[pk]
	if !ok {
		return 0, nil
	}
	n := countAtLeast(p.root, prefix)
	if end := prefixEnd(prefix); end != "" {
		n -= countAtLeast(p.root, end)
	}
	return n, nil
}

// CountAbove implements Store.CountAbove in O(log n).
func (s *TreapStore) CountAbove(ctx context.Context, pk, bound string) (int, error) {
	defer observe("count", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.parts[pk]
	if !ok {
		return 0, nil
	}
	return countAbove(p.root, bound), nil
}

// QueryIndex implements Store.QueryIndex.
func (s *TreapStore) QueryIndex(ctx context.Context, nickname, date string, limit int) ([]Item, error) {
	defer observe("query_index", time.Now())

	s.mu.RLock()
	refs := s.index[indexKey(nickname, date)]
	out := make([]Item, 0, len(refs))
	for ref := range refs {
		if p, ok := s.parts[ref.pk]; ok {
			if it, ok := p.items[ref.sk]; ok {
				out = append(out, it)
			}
		}
	}
	s.mu.RUnlock()

	sortByScoreDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindByNickname implements Store.FindByNickname.
func (s *TreapStore) FindByNickname(ctx context.Context, pk, nickname string) ([]Item, error) {
	defer observe("scan", time.Now())

	s.mu.RLock()
	var out []Item
	if p, ok := s.parts[pk]; ok {
		for _, it := range p.items {
			if it.Nickname == nickname {
				out = append(out, it)
			}
		}
	}
	s.mu.RUnlock()

	sortByScoreDesc(out)
	return out, nil
}

// Purge implements Store.Purge.
func (s *TreapStore) Purge(ctx context.Context, now time.Time) (int, error) {
	defer observe("purge", time.Now())
	cutoff := now.Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []itemRef
	for pk, p := range s.parts {
		for sk, it := range p.items {
			if it.TTL > 0 && it.TTL <= cutoff {
				expired = append(expired, itemRef{pk: pk, sk: sk})
			}
		}
	}
	for _, ref := range expired {
		s.deleteLocked(ref.pk, ref.sk)
	}
	return len(expired), nil
}

// Len returns the number of rows across all partitions.
func (s *TreapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, p := range s.parts {
		total += len(p.items)
	}
	return total
}

func sortByScoreDesc(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].SK > items[j].SK
	})
}

func observe(op string, start time.Time) {
	metrics.RecordStoreOperation(memoryBackend, op, float64(time.Since(start).Microseconds())/1000)
}

// startMetricsUpdater starts a background goroutine that publishes row counts.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateStoreRows(memoryBackend, s.Len())
			}
		}
	}()
}
