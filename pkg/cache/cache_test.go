package cache_test

import (
	"errors"
	"testing"

	"github.com/kaspervalen/goq/pkg/cache"
	"github.com/kaspervalen/goq/pkg/parser"
	"github.com/kaspervalen/goq/pkg/types"
)

const depth = 250

func compileFor(query string) func() (*types.Expression, error) {
	return func() (*types.Expression, error) { return parser.Parse(query) }
}

func TestGetOrCompileCachesResult(t *testing.T) {
	c := cache.New(4)
	calls := 0
	compile := func() (*types.Expression, error) {
		calls++
		return parser.Parse(".foo")
	}

	if _, err := c.GetOrCompile(".foo", depth, compile); err != nil {
		t.Fatalf("GetOrCompile: %v", err)
	}
	if _, err := c.GetOrCompile(".foo", depth, compile); err != nil {
		t.Fatalf("GetOrCompile: %v", err)
	}
	if calls != 1 {
		t.Fatalf("compile called %d times, want 1", calls)
	}
}

func TestGetOrCompileDoesNotCacheErrors(t *testing.T) {
	c := cache.New(4)
	calls := 0
	compile := func() (*types.Expression, error) {
		calls++
		return nil, errors.New("boom")
	}
	for i := 0; i < 2; i++ {
		if _, err := c.GetOrCompile("bad", depth, compile); err == nil {
			t.Fatalf("expected an error")
		}
	}
	if calls != 2 {
		t.Fatalf("compile called %d times, want 2 (no negative caching)", calls)
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := cache.New(2)
	if _, err := c.GetOrCompile(".a", depth, compileFor(".a")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrCompile(".b", depth, compileFor(".b")); err != nil {
		t.Fatal(err)
	}
	// touch .a so it's more recently used than .b
	if _, ok := c.Get(".a", depth); !ok {
		t.Fatalf(".a should still be cached")
	}
	if _, err := c.GetOrCompile(".c", depth, compileFor(".c")); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(".b", depth); ok {
		t.Fatalf(".b should have been evicted as least recently used")
	}
	if _, ok := c.Get(".a", depth); !ok {
		t.Fatalf(".a should still be cached")
	}
	if _, ok := c.Get(".c", depth); !ok {
		t.Fatalf(".c should be cached")
	}
}

func TestInvalidateAndClear(t *testing.T) {
	c := cache.New(4)
	c.Set(".a", depth, mustExpr(t, ".a"))
	c.Set(".b", depth, mustExpr(t, ".b"))

	c.Invalidate(".a", depth)
	if _, ok := c.Get(".a", depth); ok {
		t.Fatalf("expected .a to be invalidated")
	}
	if c.Len() != 1 {
		t.Fatalf("got len %d, want 1", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("got len %d, want 0 after Clear", c.Len())
	}
}

func TestGetFoldsSurroundingWhitespace(t *testing.T) {
	c := cache.New(4)
	c.Set(" .a ", depth, mustExpr(t, ".a"))
	if _, ok := c.Get(".a", depth); !ok {
		t.Fatalf("expected whitespace-equivalent query to share a slot")
	}
}

func TestGetOrCompileSeparatesQueriesByMaxDepth(t *testing.T) {
	c := cache.New(4)
	calls := 0
	compile := func() (*types.Expression, error) {
		calls++
		return parser.Parse(".a")
	}
	if _, err := c.GetOrCompile(".a", 250, compile); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrCompile(".a", 4, compile); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("compile called %d times, want 2 (one per max-depth)", calls)
	}
	if _, ok := c.Get(".a", 250); !ok {
		t.Fatalf("expected .a@250 still cached")
	}
	if _, ok := c.Get(".a", 4); !ok {
		t.Fatalf("expected .a@4 still cached")
	}
}

func mustExpr(t *testing.T, query string) *types.Expression {
	t.Helper()
	expr, err := parser.Parse(query)
	if err != nil {
		t.Fatalf("Parse(%q): %v", query, err)
	}
	return expr
}
