package registry

import (
	"errors"
	"testing"

	regerrors "github.com/wippyai/idreg/errors"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend()

	id, gen, err := b.Create("test value")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id != 0 {
		t.Fatalf("Expected first id 0, got %d", id)
	}

	rc, ok := b.RefCount(id)
	if !ok || rc != 1 {
		t.Fatalf("Expected refcount 1, got %d (ok=%v)", rc, ok)
	}

	payload, reclaimed, err := b.Release(id, gen)
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !reclaimed {
		t.Fatal("Expected reclamation at refcount zero")
	}
	if payload != "test value" {
		t.Fatalf("Expected 'test value', got %v", payload)
	}

	if _, ok := b.RefCount(id); ok {
		t.Fatal("Id should not be live after reclamation")
	}
}

func TestLocalBackend_RetainRelease(t *testing.T) {
	b := NewLocalBackend()

	id, gen, _ := b.Create(42)
	if err := b.Retain(id, gen); err != nil {
		t.Fatalf("Retain failed: %v", err)
	}

	// First release keeps the entry live.
	_, reclaimed, err := b.Release(id, gen)
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if reclaimed {
		t.Fatal("Entry reclaimed with a reference outstanding")
	}
	if rc, _ := b.RefCount(id); rc != 1 {
		t.Fatalf("Expected refcount 1, got %d", rc)
	}

	// Second release reclaims exactly once.
	_, reclaimed, err = b.Release(id, gen)
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !reclaimed {
		t.Fatal("Expected reclamation at refcount zero")
	}
}

func TestLocalBackend_InvariantViolations(t *testing.T) {
	b := NewLocalBackend()

	id, gen, _ := b.Create("x")
	b.Release(id, gen)

	if err := b.Retain(id, gen); !regerrors.IsFatal(err) {
		t.Fatalf("Retain on dead id should be fatal, got %v", err)
	}
	if _, _, err := b.Release(id, gen); !regerrors.IsFatal(err) {
		t.Fatalf("Release on dead id should be fatal, got %v", err)
	}
	if _, err := b.acquire(id, gen, true); !regerrors.IsFatal(err) {
		t.Fatalf("acquire on dead id should be fatal, got %v", err)
	}

	// Ids never issued are equally invalid.
	if err := b.Retain(99, 0); !regerrors.IsFatal(err) {
		t.Fatalf("Retain on unknown id should be fatal, got %v", err)
	}
}

func TestLocalBackend_GenerationRejectsReissuedId(t *testing.T) {
	b := NewLocalBackend()

	id, oldGen, _ := b.Create("first tenant")
	b.Release(id, oldGen)

	again, newGen, err := b.Create("second tenant")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if again != id {
		t.Fatalf("Expected id %d reissued, got %d", id, again)
	}
	if newGen == oldGen {
		t.Fatal("Reissued id must carry a fresh generation")
	}

	// Operations keyed by the old generation must fail fatally and leave
	// the new tenant untouched.
	if err := b.Retain(id, oldGen); !regerrors.IsFatal(err) {
		t.Fatalf("Retain with stale generation should be fatal, got %v", err)
	}
	if _, _, err := b.Release(id, oldGen); !regerrors.IsFatal(err) {
		t.Fatalf("Release with stale generation should be fatal, got %v", err)
	}
	if _, err := b.acquire(id, oldGen, false); !regerrors.IsFatal(err) {
		t.Fatalf("acquire with stale generation should be fatal, got %v", err)
	}
	if rc, ok := b.RefCount(id); !ok || rc != 1 {
		t.Fatalf("New tenant refcount = %d (ok=%v), want 1", rc, ok)
	}
}

func TestLocalBackend_GuardBlocksLastDrop(t *testing.T) {
	b := NewLocalBackend()

	id, gen, _ := b.Create("held")
	s, err := b.acquire(id, gen, false)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	if _, _, err := b.Release(id, gen); !regerrors.IsFatal(err) {
		t.Fatalf("Last drop with outstanding guard should be fatal, got %v", err)
	}

	s.mu.RUnlock()
	b.endGuard(id)

	if _, reclaimed, err := b.Release(id, gen); err != nil || !reclaimed {
		t.Fatalf("Release after guard end = (%v, %v)", reclaimed, err)
	}
}

func TestLocalBackend_IdReuseAfterReclaim(t *testing.T) {
	b := NewLocalBackend()

	id, gen, _ := b.Create("first")
	b.Release(id, gen)

	again, _, err := b.Create("second")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if again != id {
		t.Fatalf("Expected id %d reissued, got %d", id, again)
	}

	rc, ok := b.RefCount(again)
	if !ok || rc != 1 {
		t.Fatalf("Reissued entry refcount = %d (ok=%v)", rc, ok)
	}
}

type closingPayload struct {
	closed bool
	err    error
}

func (c *closingPayload) Close() error {
	c.closed = true
	return c.err
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend()

	good := &closingPayload{}
	bad := &closingPayload{err: errors.New("flush failed")}
	b.Create(good)
	b.Create(bad)
	b.Create("plain payload")

	err := b.Close()
	if err == nil {
		t.Fatal("Expected aggregated close error")
	}
	if !good.closed || !bad.closed {
		t.Fatal("All io.Closer payloads should be closed")
	}

	if _, _, err := b.Create("after close"); !errors.Is(err, regerrors.Closed(regerrors.PhaseCreate)) {
		t.Fatalf("Create after Close = %v", err)
	}

	// Idempotent.
	if err := b.Close(); err != nil {
		t.Fatalf("Second Close = %v", err)
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend()

	b.Create("a")
	idB, genB, _ := b.Create("b")
	b.Create("c")
	b.Release(idB, genB)

	seen := map[Id]any{}
	b.Each(func(id Id, rc uint32, payload any) bool {
		seen[id] = payload
		return true
	})

	if len(seen) != 2 {
		t.Fatalf("Expected 2 live entries, got %d", len(seen))
	}
	if _, ok := seen[idB]; ok {
		t.Fatal("Reclaimed entry should not be iterated")
	}
}
