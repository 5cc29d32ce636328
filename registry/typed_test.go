package registry

import "testing"

type account struct {
	Owner   string
	Balance int
}

func TestTyped_Basic(t *testing.T) {
	accounts := NewTyped[account]()
	defer accounts.Close()

	h, err := accounts.Create(account{Owner: "ada", Balance: 100})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := h.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Owner != "ada" || got.Balance != 100 {
		t.Fatalf("Unexpected payload: %+v", got)
	}

	if err := h.Update(func(a account) account {
		a.Balance -= 30
		return a
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ = h.Load()
	if got.Balance != 70 {
		t.Fatalf("Expected balance 70, got %d", got.Balance)
	}
}

func TestTyped_CloneShares(t *testing.T) {
	counters := NewTyped[int]()
	defer counters.Close()

	h, _ := counters.Create(0)
	c, err := h.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	h.Update(func(v int) int { return v + 1 })
	c.Update(func(v int) int { return v + 1 })

	got, _ := h.Load()
	if got != 2 {
		t.Fatalf("Expected aliased updates to accumulate, got %d", got)
	}

	h.Drop()
	if _, err := c.Load(); err != nil {
		t.Fatalf("Clone should survive original's drop: %v", err)
	}
	c.Drop()
	if counters.Len() != 0 {
		t.Fatal("Expected empty registry")
	}
}

func TestTyped_Store(t *testing.T) {
	strs := NewTyped[string]()
	defer strs.Close()

	h, _ := strs.Create("old")
	if err := h.Store("new"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	got, _ := h.Load()
	if got != "new" {
		t.Fatalf("Expected 'new', got %q", got)
	}
}

func TestTyped_Each(t *testing.T) {
	nums := NewTyped[int]()
	defer nums.Close()

	for i := 1; i <= 4; i++ {
		nums.Create(i * 10)
	}

	sum := 0
	nums.Each(func(_ Id, v int) bool {
		sum += v
		return true
	})
	if sum != 100 {
		t.Fatalf("Expected sum 100, got %d", sum)
	}
}
