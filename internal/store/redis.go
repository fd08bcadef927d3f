package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/georgemunganga/printa-retail/internal/errs"
)

// Redis keeps records as hashes. A record path a/b lives in hash <prefix>a/b with one
// JSON-encoded field per child, and collection a is the set <prefix>a of record keys.
// Paths deeper than collection/record/field are not supported.
type Redis struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedis(client *redis.Client, prefix string, log *zap.Logger) *Redis {
	return &Redis{client: client, prefix: prefix, log: log}
}

func (r *Redis) key(segs ...string) string { return r.prefix + Join(segs...) }

func (r *Redis) channel(path string) string { return r.prefix + "changes:" + path }

func (r *Redis) Subscribe(ctx context.Context, path string) (<-chan Event, error) {
	segs := Split(path)
	if len(segs) == 0 || len(segs) > 2 {
		return nil, fmt.Errorf("store: subscribe %q: only collections and records can be watched", path)
	}
	ps := r.client.Subscribe(ctx, r.channel(Join(segs...)))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("store: subscribe %q: %w", path, err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()
		if !r.emit(ctx, out, segs) {
			return
		}
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				if !r.emit(ctx, out, segs) {
					return
				}
			}
		}
	}()
	return out, nil
}

// emit reads the watched subtree and sends it; false means the subscription is over.
func (r *Redis) emit(ctx context.Context, out chan<- Event, segs []string) bool {
	v, err := r.read(ctx, segs)
	ev := Event{Data: AsMap(v)}
	if err != nil {
		ev = Event{Err: err}
	} else if ev.Data == nil {
		ev.Data = map[string]interface{}{}
	}
	select {
	case out <- ev:
	case <-ctx.Done():
		return false
	}
	if err != nil {
		r.log.Error("redis subscription read failed", zap.String("path", Join(segs...)), zap.Error(err))
		return false
	}
	return true
}

func (r *Redis) ReadOnce(ctx context.Context, path string) (interface{}, error) {
	return r.read(ctx, Split(path))
}

func (r *Redis) read(ctx context.Context, segs []string) (interface{}, error) {
	switch len(segs) {
	case 1:
		return r.readCollection(ctx, segs[0])
	case 2:
		fields, err := r.client.HGetAll(ctx, r.key(segs...)).Result()
		if err != nil {
			return nil, fmt.Errorf("store: read %s: %w", Join(segs...), err)
		}
		return decodeRecord(fields)
	case 3:
		s, err := r.client.HGet(ctx, r.key(segs[:2]...), segs[2]).Result()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("store: read %s: %w", Join(segs...), err)
		}
		return decode(s)
	default:
		return nil, fmt.Errorf("store: read %q: unsupported path depth", Join(segs...))
	}
}

func (r *Redis) readCollection(ctx context.Context, collection string) (interface{}, error) {
	ids, err := r.client.SMembers(ctx, r.key(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, r.key(collection, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", collection, err)
	}
	out := make(map[string]interface{}, len(ids))
	for i, id := range ids {
		rec, err := decodeRecord(cmds[i].Val())
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out[id] = rec
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func decodeRecord(fields map[string]string) (interface{}, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	rec := make(map[string]interface{}, len(fields))
	for f, s := range fields {
		v, err := decode(s)
		if err != nil {
			return nil, err
		}
		rec[f] = v
	}
	return rec, nil
}

func (r *Redis) AtomicUpdate(ctx context.Context, updates map[string]interface{}) error {
	paths := sortedKeys(updates)
	for _, p := range paths {
		if n := len(Split(p)); n < 2 || n > 3 {
			return fmt.Errorf("store: atomic update %q: unsupported path depth", p)
		}
	}

	resolved := updates
	if hasPlaceholder(updates) {
		now, err := r.client.Time(ctx).Result()
		if err != nil {
			return errs.StoreWrite("read server time", err)
		}
		resolved = resolve(updates, now.UnixMilli()).(map[string]interface{})
	}

	channels := map[string]struct{}{}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range paths {
			segs := Split(p)
			if err := r.queue(ctx, pipe, segs, resolved[p]); err != nil {
				return err
			}
			channels[segs[0]] = struct{}{}
			channels[Join(segs[:2]...)] = struct{}{}
		}
		names := make([]string, 0, len(channels))
		for c := range channels {
			names = append(names, c)
		}
		sort.Strings(names)
		for _, c := range names {
			pipe.Publish(ctx, r.channel(c), c)
		}
		return nil
	})
	if err != nil {
		return errs.StoreWrite("atomic update", err)
	}
	return nil
}

// queue adds the commands that set or remove one path to pipe.
func (r *Redis) queue(ctx context.Context, pipe redis.Pipeliner, segs []string, value interface{}) error {
	collection, record := r.key(segs[0]), r.key(segs[:2]...)
	if len(segs) == 3 {
		if value == nil {
			pipe.HDel(ctx, record, segs[2])
			return nil
		}
		s, err := encode(value)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, record, segs[2], s)
		pipe.SAdd(ctx, collection, segs[1])
		return nil
	}

	pipe.Del(ctx, record)
	if value == nil {
		pipe.SRem(ctx, collection, segs[1])
		return nil
	}
	fields, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("store: write %s: records must be objects", Join(segs...))
	}
	if len(fields) == 0 {
		pipe.SRem(ctx, collection, segs[1])
		return nil
	}
	args := make([]interface{}, 0, len(fields)*2)
	for _, f := range sortedKeys(fields) {
		s, err := encode(fields[f])
		if err != nil {
			return err
		}
		args = append(args, f, s)
	}
	pipe.HSet(ctx, record, args...)
	pipe.SAdd(ctx, collection, segs[1])
	return nil
}

func (r *Redis) Write(ctx context.Context, path string, value interface{}) error {
	return r.AtomicUpdate(ctx, map[string]interface{}{path: value})
}

func (r *Redis) Remove(ctx context.Context, path string) error {
	return r.AtomicUpdate(ctx, map[string]interface{}{path: nil})
}

func (r *Redis) Append(ctx context.Context, collection string, value map[string]interface{}) (string, error) {
	key := NewKey()
	if err := r.Write(ctx, Join(collection, key), value); err != nil {
		return "", err
	}
	return key, nil
}

// Ping checks connectivity during startup.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err()
}
