package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// subscriberBuffer is how many undelivered snapshots a slow subscriber may hold before
// the oldest is dropped. Only the latest snapshot matters to a subscriber.
const subscriberBuffer = 4

type subscriber struct {
	path string
	ch   chan Event
}

// Memory is an in-process Store backed by a JSON tree. It is the default driver for
// local runs and the one every unit test uses.
type Memory struct {
	mu   sync.Mutex
	root map[string]interface{}
	subs map[*subscriber]struct{}
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		root: map[string]interface{}{},
		subs: map[*subscriber]struct{}{},
		now:  time.Now,
	}
}

// Seed writes value at path. It is meant for fixtures.
func (m *Memory) Seed(path string, value interface{}) error {
	return m.Write(context.Background(), path, value)
}

func (m *Memory) Subscribe(ctx context.Context, path string) (<-chan Event, error) {
	segs := Split(path)
	if len(segs) == 0 {
		return nil, fmt.Errorf("store: subscribe: empty path")
	}
	sub := &subscriber{path: Join(segs...), ch: make(chan Event, subscriberBuffer)}

	m.mu.Lock()
	m.subs[sub] = struct{}{}
	m.deliver(sub)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, sub)
		close(sub.ch)
		m.mu.Unlock()
	}()
	return sub.ch, nil
}

func (m *Memory) ReadOnce(ctx context.Context, path string) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return deepCopy(lookup(m.root, Split(path))), nil
}

func (m *Memory) AtomicUpdate(ctx context.Context, updates map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepared := make(map[string]interface{}, len(updates))
	now := m.now().UnixMilli()
	for _, p := range sortedKeys(updates) {
		if len(Split(p)) == 0 {
			return fmt.Errorf("store: atomic update: empty path")
		}
		v, err := normalize(resolve(updates[p], now))
		if err != nil {
			return err
		}
		prepared[p] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	changed := make([]string, 0, len(prepared))
	for _, p := range sortedKeys(prepared) {
		segs := Split(p)
		assign(m.root, segs, prepared[p])
		changed = append(changed, Join(segs...))
	}
	m.notify(changed)
	return nil
}

func (m *Memory) Write(ctx context.Context, path string, value interface{}) error {
	return m.AtomicUpdate(ctx, map[string]interface{}{path: value})
}

func (m *Memory) Remove(ctx context.Context, path string) error {
	return m.AtomicUpdate(ctx, map[string]interface{}{path: nil})
}

func (m *Memory) Append(ctx context.Context, collection string, value map[string]interface{}) (string, error) {
	key := NewKey()
	if err := m.Write(ctx, Join(collection, key), value); err != nil {
		return "", err
	}
	return key, nil
}

// notify must be called with m.mu held.
func (m *Memory) notify(changed []string) {
	for sub := range m.subs {
		for _, p := range changed {
			if related(sub.path, p) {
				m.deliver(sub)
				break
			}
		}
	}
}

// deliver must be called with m.mu held.
func (m *Memory) deliver(sub *subscriber) {
	data, _ := deepCopy(lookup(m.root, Split(sub.path))).(map[string]interface{})
	if data == nil {
		data = map[string]interface{}{}
	}
	ev := Event{Data: data}
	for {
		select {
		case sub.ch <- ev:
			return
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
	}
}

func lookup(node interface{}, segs []string) interface{} {
	for _, s := range segs {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil
		}
		node = m[s]
	}
	return node
}

// assign sets or removes the value at segs, pruning maps left empty by a removal.
func assign(root map[string]interface{}, segs []string, value interface{}) {
	if len(segs) == 1 {
		if value == nil {
			delete(root, segs[0])
			return
		}
		if m, ok := value.(map[string]interface{}); ok && len(m) == 0 {
			delete(root, segs[0])
			return
		}
		root[segs[0]] = value
		return
	}
	child, ok := root[segs[0]].(map[string]interface{})
	if !ok {
		if value == nil {
			return
		}
		child = map[string]interface{}{}
		root[segs[0]] = child
	}
	assign(child, segs[1:], value)
	if len(child) == 0 {
		delete(root, segs[0])
	}
}

func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, c := range t {
			out[k] = deepCopy(c)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, c := range t {
			out[i] = deepCopy(c)
		}
		return out
	default:
		return v
	}
}
