package xmsg

import (
	"cmp"
	"slices"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// listener is one registration. It doubles as the Subscription handed back by On/Once.
type listener struct {
	seq      uint64
	pattern  pattern
	handler  Handler
	key      uintptr
	priority Priority
	owner    string
	once     bool

	fired   atomic.Bool
	removed atomic.Bool
	bus     *Bus
}

func (l *listener) Pattern() string { return l.pattern.raw }

// Close removes this registration. Closing twice is a no-op.
func (l *listener) Close() error {
	if l.bus != nil {
		l.bus.removeListener(l)
	}
	return nil
}

func compareListeners(a, b *listener) int {
	if c := cmp.Compare(a.priority, b.priority); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// registry holds listeners per pattern and a bounded cache of resolved event names.
// It is not safe for concurrent use; the Bus serializes every call under its lock.
type registry struct {
	byPattern map[string][]*listener
	cache     *lru.Cache[string, []*listener]
	seq       uint64
	count     int
}

func newRegistry(cacheSize int) (*registry, error) {
	cache, err := lru.New[string, []*listener](cacheSize)
	if err != nil {
		return nil, err
	}
	return &registry{
		byPattern: make(map[string][]*listener),
		cache:     cache,
	}, nil
}

// add inserts l behind every listener of the same or higher tier for its pattern.
func (r *registry) add(l *listener) {
	r.seq++
	l.seq = r.seq

	list := r.byPattern[l.pattern.raw]
	i := len(list)
	for i > 0 && list[i-1].priority > l.priority {
		i--
	}
	list = slices.Insert(list, i, l)
	r.byPattern[l.pattern.raw] = list
	r.count++
	r.cache.Purge()
}

// find returns the earliest registration of key under pattern.
func (r *registry) find(pat string, key uintptr) *listener {
	for _, l := range r.byPattern[pat] {
		if l.key == key {
			return l
		}
	}
	return nil
}

func (r *registry) remove(l *listener) bool {
	list := r.byPattern[l.pattern.raw]
	i := slices.Index(list, l)
	if i < 0 {
		return false
	}
	l.removed.Store(true)
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(r.byPattern, l.pattern.raw)
	} else {
		r.byPattern[l.pattern.raw] = list
	}
	r.count--
	r.cache.Purge()
	return true
}

// resolve returns the listeners matching event ordered by (priority, registration).
// The returned slice is shared with the cache and must not be modified.
func (r *registry) resolve(event string) []*listener {
	if hit, ok := r.cache.Get(event); ok {
		return hit
	}

	parts := strings.Split(event, Separator)
	var all []*listener
	for _, list := range r.byPattern {
		if len(list) == 0 || !list[0].pattern.match(parts) {
			continue
		}
		all = append(all, list...)
	}
	slices.SortFunc(all, compareListeners)

	r.cache.Add(event, all)
	return all
}

func (r *registry) len() int { return r.count }

func (r *registry) clear() {
	for _, list := range r.byPattern {
		for _, l := range list {
			l.removed.Store(true)
		}
	}
	r.byPattern = make(map[string][]*listener)
	r.count = 0
	r.cache.Purge()
}
