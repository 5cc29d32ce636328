package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/idreg/registry"
)

func main() {
	var (
		script      = flag.String("script", "", "Semicolon-separated operations (create/clone/drop/get/set/stats)")
		shards      = flag.Int("shards", 1, "Number of lock shards")
		capacity    = flag.Uint64("capacity", 0, "Id space bound (0 = full 32-bit range)")
		verbose     = flag.Bool("v", false, "Enable debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		registry.SetLogger(logger)
		defer logger.Sync()
	}

	opts := []registry.Option{registry.WithShards(*shards)}
	if *capacity > 0 {
		opts = append(opts, registry.WithCapacity(*capacity))
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *script == "" {
		fmt.Fprintln(os.Stderr, "Usage: idreg -script 'create 42; clone 0; drop 0; stats'")
		fmt.Fprintln(os.Stderr, "       idreg -i  (interactive mode)")
		os.Exit(1)
	}

	if err := runScript(*script, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runScript(script string, opts []registry.Option) error {
	s := newSession(opts...)
	defer s.close()

	for _, op := range strings.Split(script, ";") {
		op = strings.TrimSpace(op)
		if op == "" {
			continue
		}
		out, err := s.exec(op)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		fmt.Println(out)
	}
	return nil
}

// session tracks the handles created by a command sequence so drops can
// be paired with creates and clones.
type session struct {
	reg     *registry.Registry
	handles map[registry.Id][]*registry.Handle
}

func newSession(opts ...registry.Option) *session {
	return &session{
		reg:     registry.New(opts...),
		handles: make(map[registry.Id][]*registry.Handle),
	}
}

func (s *session) close() {
	s.reg.Close()
}

// exec runs a single operation and returns its human-readable result.
func (s *session) exec(op string) (string, error) {
	fields := strings.Fields(op)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty operation")
	}

	switch fields[0] {
	case "create":
		if len(fields) < 2 {
			return "", fmt.Errorf("usage: create <payload>")
		}
		h, err := s.reg.Create(strings.Join(fields[1:], " "))
		if err != nil {
			return "", err
		}
		s.handles[h.Id()] = append(s.handles[h.Id()], h)
		return fmt.Sprintf("created id=%d refcount=1", h.Id()), nil

	case "clone":
		h, err := s.lookup(fields, "clone")
		if err != nil {
			return "", err
		}
		c, err := h.Clone()
		if err != nil {
			return "", err
		}
		s.handles[c.Id()] = append(s.handles[c.Id()], c)
		rc, _ := s.reg.RefCount(c.Id())
		return fmt.Sprintf("cloned id=%d refcount=%d", c.Id(), rc), nil

	case "drop":
		h, err := s.lookup(fields, "drop")
		if err != nil {
			return "", err
		}
		id := h.Id()
		if err := h.Drop(); err != nil {
			return "", err
		}
		held := s.handles[id]
		s.handles[id] = held[:len(held)-1]
		if rc, live := s.reg.RefCount(id); live {
			return fmt.Sprintf("dropped id=%d refcount=%d", id, rc), nil
		}
		return fmt.Sprintf("dropped id=%d (reclaimed)", id), nil

	case "get":
		h, err := s.lookup(fields, "get")
		if err != nil {
			return "", err
		}
		var payload any
		if err := h.View(func(v any) { payload = v }); err != nil {
			return "", err
		}
		return fmt.Sprintf("id=%d payload=%v", h.Id(), payload), nil

	case "set":
		if len(fields) < 3 {
			return "", fmt.Errorf("usage: set <id> <payload>")
		}
		h, err := s.lookup(fields[:2], "set")
		if err != nil {
			return "", err
		}
		value := strings.Join(fields[2:], " ")
		if err := h.Update(func(any) any { return value }); err != nil {
			return "", err
		}
		return fmt.Sprintf("id=%d payload=%v", h.Id(), value), nil

	case "stats":
		return s.stats(), nil

	default:
		return "", fmt.Errorf("unknown operation %q", fields[0])
	}
}

// lookup resolves "<op> <id>" to the most recent live handle for that id.
func (s *session) lookup(fields []string, op string) (*registry.Handle, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("usage: %s <id>", op)
	}
	var id registry.Id
	if _, err := fmt.Sscanf(fields[1], "%d", &id); err != nil {
		return nil, fmt.Errorf("bad id %q", fields[1])
	}
	held := s.handles[id]
	if len(held) == 0 {
		return nil, fmt.Errorf("no live handle for id %d", id)
	}
	return held[len(held)-1], nil
}

func (s *session) stats() string {
	snap := s.reg.Snapshot()
	sort.Slice(snap, func(i, j int) bool { return snap[i].Id < snap[j].Id })

	var b strings.Builder
	fmt.Fprintf(&b, "%d live entries", len(snap))
	for _, e := range snap {
		fmt.Fprintf(&b, "\n  id=%d refcount=%d payload=%v", e.Id, e.RefCount, e.Payload)
	}
	return b.String()
}
