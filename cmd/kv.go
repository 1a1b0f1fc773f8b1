package cmd

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quocvuong92/clirepl/internal/parser"
)

// kvStore is the in-memory keyspace behind the get/set/del/sadd/smembers
// demo commands.
type kvStore struct {
	mu      sync.Mutex
	strings map[string]kvEntry
	sets    map[string]map[string]struct{}
	now     func() time.Time
}

type kvEntry struct {
	value   string
	expires time.Time // zero means no expiry
}

func newKVStore() *kvStore {
	return &kvStore{
		strings: make(map[string]kvEntry),
		sets:    make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

func (kv *kvStore) get(key string) (string, bool) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	e, ok := kv.strings[key]
	if !ok {
		return "", false
	}
	if !e.expires.IsZero() && !kv.now().Before(e.expires) {
		delete(kv.strings, key)
		return "", false
	}
	return e.value, true
}

func (kv *kvStore) set(key, value string, ttl time.Duration) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	e := kvEntry{value: value}
	if ttl > 0 {
		e.expires = kv.now().Add(ttl)
	}
	delete(kv.sets, key)
	kv.strings[key] = e
}

// del removes keys of either kind and returns how many existed.
func (kv *kvStore) del(keys ...string) int {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	n := 0
	for _, key := range keys {
		if _, ok := kv.strings[key]; ok {
			delete(kv.strings, key)
			n++
		}
		if _, ok := kv.sets[key]; ok {
			delete(kv.sets, key)
			n++
		}
	}
	return n
}

// sadd returns the number of members that were not already present.
func (kv *kvStore) sadd(key string, members ...string) (int, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if _, ok := kv.strings[key]; ok {
		return 0, fmt.Errorf("key %q holds a string, not a set", key)
	}
	set, ok := kv.sets[key]
	if !ok {
		set = make(map[string]struct{})
		kv.sets[key] = set
	}
	added := 0
	for _, m := range members {
		if _, ok := set[m]; !ok {
			set[m] = struct{}{}
			added++
		}
	}
	return added, nil
}

func (kv *kvStore) smembers(key string) []string {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	members := make([]string, 0, len(kv.sets[key]))
	for m := range kv.sets[key] {
		members = append(members, m)
	}
	sort.Strings(members)
	return members
}

func (s *session) kvGet(_ context.Context, cmd *parser.Command) error {
	value, ok := s.kv.get(cmd.String("key"))
	if !ok {
		fmt.Fprintln(s.out, "(nil)")
		return nil
	}
	fmt.Fprintf(s.out, "%q\n", value)
	return nil
}

func (s *session) kvSet(_ context.Context, cmd *parser.Command) error {
	ttl := time.Duration(cmd.Int("ttl")) * time.Second
	if ttl < 0 {
		return fmt.Errorf("invalid expire time %d", cmd.Int("ttl"))
	}
	s.kv.set(cmd.String("key"), cmd.String("value"), ttl)
	fmt.Fprintln(s.out, "OK")
	return nil
}

func (s *session) kvDel(_ context.Context, cmd *parser.Command) error {
	fmt.Fprintf(s.out, "(integer) %d\n", s.kv.del(cmd.Strings("key")...))
	return nil
}

func (s *session) kvSadd(_ context.Context, cmd *parser.Command) error {
	n, err := s.kv.sadd(cmd.String("key"), cmd.Strings("member")...)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "(integer) %d\n", n)
	return nil
}

func (s *session) kvSmembers(_ context.Context, cmd *parser.Command) error {
	members := s.kv.smembers(cmd.String("key"))
	if len(members) == 0 {
		fmt.Fprintln(s.out, "(empty set)")
		return nil
	}
	for i, m := range members {
		fmt.Fprintf(s.out, "%d) %q\n", i+1, m)
	}
	return nil
}
