package context

import "testing"

func TestRequireHelperIsIdempotent(t *testing.T) {
	c := New()
	c.RequireHelper("nlany", "typedef struct { void* p; } nlany;")
	c.RequireHelper("nlany", "typedef struct { void* p; } nlany;")
	if len(c.Declarations) != 1 {
		t.Fatalf("expected exactly one prelude append, got %d", len(c.Declarations))
	}
}

func TestAfterAnalyzeHooksRunInRegistrationOrderAndMayNest(t *testing.T) {
	c := New()
	var order []int
	c.AfterAnalyze(func(c *Context) error {
		order = append(order, 1)
		c.AfterAnalyze(func(c *Context) error {
			order = append(order, 3)
			return nil
		})
		return nil
	})
	c.AfterAnalyze(func(c *Context) error {
		order = append(order, 2)
		return nil
	})
	if err := c.RunAfterAnalyzeHooks(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected FIFO order [1 2 3] with the nested hook draining last, got %v", order)
	}
}

func TestAfterAnalyzeCapGuaranteesTermination(t *testing.T) {
	c := New()
	var register func(*Context) error
	register = func(c *Context) error {
		c.AfterAnalyze(register)
		return nil
	}
	c.AfterAnalyze(register)
	err := c.RunAfterAnalyzeHooks()
	if _, ok := err.(ErrTooManyAfterAnalyzeHooks); !ok {
		t.Fatalf("expected ErrTooManyAfterAnalyzeHooks, got %v", err)
	}
}

func TestGenSymProducesDistinctNames(t *testing.T) {
	c := New()
	a := c.GenSym("tmp")
	b := c.GenSym("tmp")
	if a == b {
		t.Fatal("expected distinct generated names")
	}
}
