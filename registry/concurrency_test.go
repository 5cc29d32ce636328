package registry

import (
	"testing"

	"golang.org/x/sync/errgroup"
)

// Hammers clone/access/drop from many goroutines. The invariants under
// test: the refcount never underflows, every entry is reclaimed exactly
// once, and the registry ends empty.
func TestRegistry_ConcurrentCloneDrop(t *testing.T) {
	for _, shards := range []int{1, 4} {
		reg := New(WithShards(shards))

		const workers = 16
		const rounds = 200

		h, err := reg.Create(0)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		var g errgroup.Group
		for w := 0; w < workers; w++ {
			g.Go(func() error {
				for i := 0; i < rounds; i++ {
					c, err := h.Clone()
					if err != nil {
						return err
					}
					if err := c.Update(func(v any) any { return v.(int) + 1 }); err != nil {
						return err
					}
					if err := c.Drop(); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("shards=%d: worker failed: %v", shards, err)
		}

		var total int
		h.View(func(v any) { total = v.(int) })
		if total != workers*rounds {
			t.Fatalf("shards=%d: expected %d increments, got %d", shards, workers*rounds, total)
		}
		if rc, _ := reg.RefCount(h.Id()); rc != 1 {
			t.Fatalf("shards=%d: expected refcount 1, got %d", shards, rc)
		}

		if err := h.Drop(); err != nil {
			t.Fatalf("shards=%d: final Drop failed: %v", shards, err)
		}
		if reg.Len() != 0 {
			t.Fatalf("shards=%d: expected empty registry, got %d", shards, reg.Len())
		}
		reg.Close()
	}
}

// Independent creates and drops across goroutines never hand out the
// same id to two live entries.
func TestRegistry_ConcurrentCreateUniqueIds(t *testing.T) {
	reg := New(WithShards(4))
	defer reg.Close()

	const workers = 8
	const perWorker = 100

	ids := make(chan Id, workers*perWorker)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				h, err := reg.Create(i)
				if err != nil {
					return err
				}
				ids <- h.Id()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("worker failed: %v", err)
	}
	close(ids)

	seen := map[Id]bool{}
	for id := range ids {
		if seen[id] {
			t.Fatalf("Id %d issued to two live entries", id)
		}
		seen[id] = true
	}
	if reg.Len() != workers*perWorker {
		t.Fatalf("Expected %d live entries, got %d", workers*perWorker, reg.Len())
	}
}

func BenchmarkRegistry_CreateDrop(b *testing.B) {
	reg := New()
	defer reg.Close()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h, err := reg.Create(i)
		if err != nil {
			b.Fatal(err)
		}
		if err := h.Drop(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRegistry_CloneDropParallel(b *testing.B) {
	reg := New(WithShards(8))
	defer reg.Close()

	h, _ := reg.Create(0)
	defer h.Drop()

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c, err := h.Clone()
			if err != nil {
				b.Fatal(err)
			}
			if err := c.Drop(); err != nil {
				b.Fatal(err)
			}
		}
	})
}
