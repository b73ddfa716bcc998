// Package jsonstore persists small collections in one flat JSON file. Every
// operation reads the file and every mutation rewrites it.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// File is a JSON object whose top-level keys are collection names.
type File struct {
	mu   sync.RWMutex
	path string
}

func Open(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string { return f.path }

func (f *File) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	doc := map[string]json.RawMessage{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return doc, nil
}

// save writes to a temp file in the same directory and renames it over the
// original so readers never see a partial document.
func (f *File) save(doc map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".studyhub-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

type Collection[T any] struct {
	file *File
	name string
	key  func(T) string
}

// NewCollection binds the collection stored under name in f. key returns the
// unique id of a record.
func NewCollection[T any](f *File, name string, key func(T) string) *Collection[T] {
	return &Collection[T]{file: f, name: name, key: key}
}

func (c *Collection[T]) read(doc map[string]json.RawMessage) ([]T, error) {
	raw, ok := doc[c.name]
	if !ok {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode collection %s: %w", c.name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *Collection[T]) write(doc map[string]json.RawMessage, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", c.name, err)
	}
	doc[c.name] = raw
	return c.file.save(doc)
}

func (c *Collection[T]) All() ([]T, error) {
	c.file.mu.RLock()
	defer c.file.mu.RUnlock()

	doc, err := c.file.load()
	if err != nil {
		return nil, err
	}
	return c.read(doc)
}

func (c *Collection[T]) Get(id string) (T, error) {
	var zero T
	items, err := c.All()
	if err != nil {
		return zero, err
	}
	for _, it := range items {
		if c.key(it) == id {
			return it, nil
		}
	}
	return zero, ErrNotFound
}

func (c *Collection[T]) Insert(item T) error {
	return c.mutate(func(items []T) ([]T, error) {
		id := c.key(item)
		for _, it := range items {
			if c.key(it) == id {
				return nil, ErrDuplicate
			}
		}
		return append(items, item), nil
	})
}

// Update applies fn to the record with the given id and stores the result.
// The record's id must not change.
func (c *Collection[T]) Update(id string, fn func(*T) error) (T, error) {
	var updated T
	err := c.mutate(func(items []T) ([]T, error) {
		for i := range items {
			if c.key(items[i]) != id {
				continue
			}
			next := items[i]
			if err := fn(&next); err != nil {
				return nil, err
			}
			if c.key(next) != id {
				return nil, fmt.Errorf("update must not change the id of %s", id)
			}
			items[i] = next
			updated = next
			return items, nil
		}
		return nil, ErrNotFound
	})
	return updated, err
}

func (c *Collection[T]) Delete(id string) error {
	return c.mutate(func(items []T) ([]T, error) {
		for i := range items {
			if c.key(items[i]) == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}

// Replace overwrites the whole collection.
func (c *Collection[T]) Replace(items []T) error {
	return c.mutate(func([]T) ([]T, error) {
		return items, nil
	})
}

func (c *Collection[T]) mutate(fn func([]T) ([]T, error)) error {
	c.file.mu.Lock()
	defer c.file.mu.Unlock()

	doc, err := c.file.load()
	if err != nil {
		return err
	}
	items, err := c.read(doc)
	if err != nil {
		return err
	}
	next, err := fn(items)
	if err != nil {
		return err
	}
	return c.write(doc, next)
}
