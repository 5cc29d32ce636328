package main

import (
	"strings"
	"testing"
)

func TestSession_Script(t *testing.T) {
	s := newSession()
	defer s.close()

	steps := []struct {
		op   string
		want string
	}{
		{"create 42", "created id=0 refcount=1"},
		{"clone 0", "cloned id=0 refcount=2"},
		{"drop 0", "dropped id=0 refcount=1"},
		{"get 0", "id=0 payload=42"},
		{"set 0 99", "id=0 payload=99"},
		{"drop 0", "dropped id=0 (reclaimed)"},
		{"stats", "0 live entries"},
	}

	for _, step := range steps {
		out, err := s.exec(step.op)
		if err != nil {
			t.Fatalf("%s: %v", step.op, err)
		}
		if out != step.want {
			t.Fatalf("%s: got %q, want %q", step.op, out, step.want)
		}
	}
}

func TestSession_Errors(t *testing.T) {
	s := newSession()
	defer s.close()

	if _, err := s.exec("drop 5"); err == nil {
		t.Fatal("drop of unknown id should fail")
	}
	if _, err := s.exec("create"); err == nil {
		t.Fatal("create without payload should fail")
	}
	if _, err := s.exec("frobnicate 1"); err == nil {
		t.Fatal("unknown op should fail")
	}
}

func TestSession_StatsListsEntries(t *testing.T) {
	s := newSession()
	defer s.close()

	s.exec("create alpha")
	s.exec("create beta")

	out, err := s.exec("stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.HasPrefix(out, "2 live entries") {
		t.Fatalf("stats = %q", out)
	}
	if !strings.Contains(out, "payload=alpha") || !strings.Contains(out, "payload=beta") {
		t.Fatalf("stats missing payloads: %q", out)
	}
}
