package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/safetalk/safetalk-server/internal/moderation"
	"github.com/safetalk/safetalk-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func noEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

type memStore struct {
	mu       sync.Mutex
	messages []*store.Message
	saveErr  error
}

func (s *memStore) SaveMessage(_ context.Context, msg *store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	msg.ID = int64(len(s.messages) + 1)
	cp := *msg
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *memStore) MarkRead(_ context.Context, ids []int64, username string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var n int64
	for _, m := range s.messages {
		if _, ok := want[m.ID]; ok && m.Receiver == username && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *memStore) saved() []*store.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*store.Message(nil), s.messages...)
}

type verdictFunc func(text string) moderation.Verdict

func (f verdictFunc) Classify(_ context.Context, text string) moderation.Verdict { return f(text) }

type staticAccess struct {
	access moderation.Access
	err    error
}

func (a staticAccess) EvaluateAccess(context.Context, int64, string) (moderation.Access, error) {
	return a.access, a.err
}

type tokenTable map[string]string

func (tt tokenTable) Authenticate(token string) (int64, string, error) {
	name, ok := tt[token]
	if !ok {
		return 0, "", errors.New("bad token")
	}
	return int64(len(name)), name, nil
}

// startHub runs a hub until the test ends.
func startHub(t testing.TB, opts Options) (Hub, *memStore) {
	t.Helper()

	st, ok := opts.Store.(*memStore)
	if !ok || st == nil {
		st = &memStore{}
		opts.Store = st
	}
	h := NewHub(opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h, st
}

// connect registers a client and waits for the connected event.
func connect(t testing.TB, h Hub, id, username string) *Client {
	t.Helper()

	c := NewClient(id)
	h.RegisterClient(c)
	c.Commands <- &Command{Kind: CommandConnect, Username: username}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events:
			if ev.Kind == EventConnected {
				return c
			}
			if ev.Kind == EventError {
				t.Fatalf("connect %s failed: %+v", username, ev.Error)
			}
		case <-deadline:
			t.Fatalf("connect %s timed out", username)
		}
	}
}
