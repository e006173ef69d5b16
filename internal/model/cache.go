package model

import (
	"fmt"
	"sync"

	radix "github.com/armon/go-radix"
)

// Tag is the closed set of cache value kinds (§4.2).
type Tag string

const (
	TagFileModel Tag = "FILEMODEL"
	TagRaw       Tag = "RAW"
	TagImport    Tag = "IMPORT"
)

// Cache is the ModelCache contract (C2): a tagged store keyed either by
// coordinates or by source identity. get returns a caller-owned clone;
// put stores a defensive clone. The cache is optional — callers that
// don't supply one simply repeat work (§4.2, §7).
type Cache interface {
	GetByCoordinates(c Coordinates, tag Tag) (*Descriptor, bool)
	PutByCoordinates(c Coordinates, tag Tag, m *Descriptor) error
	GetBySource(source string, tag Tag) (*Descriptor, bool)
	PutBySource(source string, tag Tag, m *Descriptor) error
	GetImport(c Coordinates) (DependencyManagement, bool)
	PutImport(c Coordinates, dm DependencyManagement) error
}

// entry is the tag-typed value stored in the radix index. Keys mix two
// shapes, exactly as spec.md §4.2 describes: "(groupId, artifactId,
// version, tag)" and "(sourceIdentity, tag)" both reduce to a single
// string key so one radix tree can index both.
type entry struct {
	tag   Tag
	model *Descriptor
	dm    *DependencyManagement
}

// memCache is the default in-process ModelCache, layered on an
// armon/go-radix tree the way golang-dep's rootdata.go indexes
// constraints by ProjectRoot prefix (getApplicableConstraints) — here
// the prefix structure lets a caller enumerate every cached tag for a
// given coordinate with one Walk, which the CLI's --dump-cache
// diagnostic uses for inspection.
type memCache struct {
	mu   sync.Mutex
	tree *radix.Tree
}

// NewCache returns the default in-memory ModelCache.
func NewCache() Cache {
	return &memCache{tree: radix.New()}
}

func coordKey(c Coordinates, tag Tag) string {
	return fmt.Sprintf("gav:%s:%s", c.ModelID(), tag)
}

func sourceKey(source string, tag Tag) string {
	return fmt.Sprintf("src:%s:%s", source, tag)
}

func importKey(c Coordinates) string {
	return fmt.Sprintf("gav:%s:%s", c.ModelID(), TagImport)
}

func (c *memCache) GetByCoordinates(coord Coordinates, tag Tag) (*Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.tree.Get(coordKey(coord, tag))
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if e.tag != tag || e.model == nil {
		return nil, false
	}
	return e.model.Clone(), true
}

func (c *memCache) PutByCoordinates(coord Coordinates, tag Tag, m *Descriptor) error {
	if tag == TagImport {
		return fmt.Errorf("cache: use PutImport for the %s tag", TagImport)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := coordKey(coord, tag)
	if existing, ok := c.tree.Get(key); ok {
		if existing.(entry).tag != tag {
			return fmt.Errorf("cache: tag mismatch for key %q: have %s, want %s", key, existing.(entry).tag, tag)
		}
	}
	c.tree.Insert(key, entry{tag: tag, model: m.Clone()})
	return nil
}

func (c *memCache) GetBySource(source string, tag Tag) (*Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.tree.Get(sourceKey(source, tag))
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if e.tag != tag || e.model == nil {
		return nil, false
	}
	return e.model.Clone(), true
}

func (c *memCache) PutBySource(source string, tag Tag, m *Descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := sourceKey(source, tag)
	if existing, ok := c.tree.Get(key); ok {
		if existing.(entry).tag != tag {
			return fmt.Errorf("cache: tag mismatch for key %q: have %s, want %s", key, existing.(entry).tag, tag)
		}
	}
	c.tree.Insert(key, entry{tag: tag, model: m.Clone()})
	return nil
}

func (c *memCache) GetImport(coord Coordinates) (DependencyManagement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.tree.Get(importKey(coord))
	if !ok || v.(entry).dm == nil {
		return DependencyManagement{}, false
	}
	dm := *v.(entry).dm
	dm.Dependencies = append([]Dependency(nil), dm.Dependencies...)
	return dm, true
}

func (c *memCache) PutImport(coord Coordinates, dm DependencyManagement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := dm
	cp.Dependencies = append([]Dependency(nil), dm.Dependencies...)
	c.tree.Insert(importKey(coord), entry{tag: TagImport, dm: &cp})
	return nil
}

// WalkCoordinatePrefix visits every cached entry whose key starts with
// the given groupId:artifactId prefix, regardless of version or tag.
// Exposed for diagnostics. Only the in-memory cache returned by NewCache
// is walked; for any other Cache implementation (e.g. PersistentCache)
// fn is never called.
func WalkCoordinatePrefix(c Cache, prefix string, fn func(key string)) {
	mc, ok := c.(*memCache)
	if !ok {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.tree.WalkPrefix("gav:"+prefix, func(s string, _ interface{}) bool {
		fn(s)
		return false
	})
}
