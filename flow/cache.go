package flow

import (
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru"

	"github.com/classflow/go-classflow/classfile"
)

// GraphCache memoizes built graphs keyed by a digest of the method's code
// bytes, so identical bodies across classes share one build. It is safe for
// concurrent use.
type GraphCache struct {
	graphs *lru.Cache
}

// NewGraphCache returns a cache holding up to size graphs.
func NewGraphCache(size int) (*GraphCache, error) {
	graphs, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &GraphCache{graphs: graphs}, nil
}

// Build returns the graph of code, reusing a previously built graph when the
// same code bytes have been seen. Errors are not cached.
func (c *GraphCache) Build(code *classfile.Code) (*Graph, error) {
	key := sha256.Sum256(code.Bytes)
	if cached, ok := c.graphs.Get(key); ok {
		return cached.(*Graph), nil
	}
	g, err := Build(code)
	if err != nil {
		return nil, err
	}
	c.graphs.Add(key, g)
	return g, nil
}

// Len returns the number of cached graphs.
func (c *GraphCache) Len() int { return c.graphs.Len() }
