package database

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/iliyamo/manufacturer-api/internal/repository"
)

// MemoryStore keeps documents in process. It backs local development and the
// test suites; data does not survive a restart. Transactions are serialized
// and roll back by restoring a snapshot, so writes made outside a
// transaction while one is running may be lost on rollback.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data map[string][]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]map[string]any{}}
}

func (s *MemoryStore) Collection(name string) repository.Collection {
	return &memCollection{s: s, name: name}
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inMemTx(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := make(map[string][]map[string]any, len(s.data))
	for name, docs := range s.data {
		snapshot[name] = append([]map[string]any(nil), docs...)
	}
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

type memTxKey struct{}

func inMemTx(ctx context.Context) bool {
	v, _ := ctx.Value(memTxKey{}).(bool)
	return v
}

type memCollection struct {
	s    *MemoryStore
	name string
}

func matches(doc map[string]any, f repository.Filter) bool {
	for k, want := range f {
		got, ok := doc[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func (c *memCollection) FindOne(ctx context.Context, f repository.Filter, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	for _, doc := range c.s.data[c.name] {
		if matches(doc, f) {
			b, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			return json.Unmarshal(b, out)
		}
	}
	return repository.ErrNotFound
}

func (c *memCollection) Find(ctx context.Context, f repository.Filter, opts repository.FindOptions, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.s.mu.RLock()
	docs := c.s.data[c.name]
	var found []json.RawMessage
	for i := len(docs) - 1; i >= 0; i-- {
		if opts.Limit > 0 && int64(len(found)) >= opts.Limit {
			break
		}
		if !matches(docs[i], f) {
			continue
		}
		b, err := json.Marshal(docs[i])
		if err != nil {
			c.s.mu.RUnlock()
			return err
		}
		found = append(found, b)
	}
	c.s.mu.RUnlock()
	return decodeDocs(found, out)
}

func (c *memCollection) InsertOne(ctx context.Context, v any) (repository.InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return repository.InsertResult{}, err
	}
	doc, err := toDoc(v)
	if err != nil {
		return repository.InsertResult{}, err
	}
	id := docID(doc)
	doc[repository.IDField] = id

	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, existing := range c.s.data[c.name] {
		if existing[repository.IDField] == id {
			return repository.InsertResult{}, fmt.Errorf("duplicate key %s in %s", id, c.name)
		}
	}
	c.s.data[c.name] = append(c.s.data[c.name], doc)
	return repository.InsertResult{Acknowledged: true, InsertedID: id}, nil
}

func (c *memCollection) UpdateOne(ctx context.Context, f repository.Filter, set map[string]any, upsert bool) (repository.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return repository.UpdateResult{}, err
	}
	fields, err := toDoc(set)
	if err != nil {
		return repository.UpdateResult{}, err
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	docs := c.s.data[c.name]
	for i, doc := range docs {
		if !matches(doc, f) {
			continue
		}
		next := make(map[string]any, len(doc)+len(fields))
		for k, v := range doc {
			next[k] = v
		}
		modified := false
		for k, v := range fields {
			if k == repository.IDField {
				continue
			}
			if !reflect.DeepEqual(next[k], v) {
				next[k] = v
				modified = true
			}
		}
		docs[i] = next
		res := repository.UpdateResult{Acknowledged: true, MatchedCount: 1}
		if modified {
			res.ModifiedCount = 1
		}
		return res, nil
	}
	if !upsert {
		return repository.UpdateResult{Acknowledged: true}, nil
	}

	doc, err := toDoc(map[string]any(f))
	if err != nil {
		return repository.UpdateResult{}, err
	}
	for k, v := range fields {
		doc[k] = v
	}
	id := docID(doc)
	doc[repository.IDField] = id
	c.s.data[c.name] = append(docs, doc)
	return repository.UpdateResult{Acknowledged: true, UpsertedCount: 1, UpsertedID: id}, nil
}

func (c *memCollection) DeleteOne(ctx context.Context, f repository.Filter) (repository.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return repository.DeleteResult{}, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	docs := c.s.data[c.name]
	for i, doc := range docs {
		if matches(doc, f) {
			next := make([]map[string]any, 0, len(docs)-1)
			next = append(next, docs[:i]...)
			c.s.data[c.name] = append(next, docs[i+1:]...)
			return repository.DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
		}
	}
	return repository.DeleteResult{Acknowledged: true}, nil
}
