package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/safetalk/safetalk-server/internal/moderation"
	"github.com/safetalk/safetalk-server/internal/store"
	"github.com/safetalk/safetalk-server/internal/store/sqlite"
)

type onlineSet map[string]bool

func (o onlineSet) IsOnline(username string) bool { return o[username] }

type fixture struct {
	svc   *Service
	store *sqlite.SQLiteStore
	users map[string]*store.User
}

func newFixture(t *testing.T, online onlineSet, maxAllowed int) *fixture {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	users := make(map[string]*store.User)
	for _, name := range []string{"alice", "bob", "carol"} {
		u, err := st.CreateUser(context.Background(), name, name+"@example.com", "hash")
		if err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
		users[name] = u
	}

	ledger := moderation.NewLedger(st, st, maxAllowed)
	return &fixture{svc: New(st, online, ledger, 50), store: st, users: users}
}

func (f *fixture) send(t *testing.T, from, to, text string, at time.Duration, flagged bool) *store.Message {
	t.Helper()

	m := &store.Message{
		Sender:     from,
		Receiver:   to,
		Content:    text,
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(at),
		IsBullying: flagged,
	}
	if err := f.store.SaveMessage(context.Background(), m); err != nil {
		t.Fatalf("save: %v", err)
	}
	return m
}

func TestHistoryMarksCallerUnreadAsRead(t *testing.T) {
	f := newFixture(t, nil, 5)
	ctx := context.Background()

	f.send(t, "bob", "alice", "hi alice", 0, false)
	f.send(t, "alice", "bob", "hi bob", time.Second, false)

	page, err := f.svc.History(ctx, f.users["alice"].ID, "bob", 0, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page.Messages) != 2 || page.HasMore {
		t.Fatalf("unexpected page: %d messages, has_more=%v", len(page.Messages), page.HasMore)
	}
	if !page.Messages[0].IsRead {
		t.Fatalf("message to alice should be reported read")
	}
	if page.Messages[1].IsRead {
		t.Fatalf("message alice sent must stay unread for bob")
	}

	// Bob still sees his message unread until he fetches.
	convs, err := f.svc.Conversations(ctx, f.users["bob"].ID)
	if err != nil {
		t.Fatalf("conversations: %v", err)
	}
	if len(convs) != 1 || convs[0].UnreadCount != 1 {
		t.Fatalf("expected bob to have one unread, got %+v", convs)
	}
}

func TestHistoryClampsLimit(t *testing.T) {
	f := newFixture(t, nil, 5)
	for i := 0; i < 3; i++ {
		f.send(t, "alice", "bob", "m", time.Duration(i)*time.Second, false)
	}

	page, err := f.svc.History(context.Background(), f.users["alice"].ID, "bob", 2, -4)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page.Messages) != 2 || !page.HasMore {
		t.Fatalf("expected 2 messages with more, got %d has_more=%v", len(page.Messages), page.HasMore)
	}
}

func TestUnknownCaller(t *testing.T) {
	f := newFixture(t, nil, 5)

	if _, err := f.svc.History(context.Background(), 9999, "bob", 10, 0); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := f.svc.History(context.Background(), f.users["alice"].ID, "  ", 10, 0); !errors.Is(err, ErrInvalidPeer) {
		t.Fatalf("expected ErrInvalidPeer, got %v", err)
	}
}

func TestConversationsAndOnlineUsersCarryPresence(t *testing.T) {
	f := newFixture(t, onlineSet{"bob": true}, 5)
	ctx := context.Background()

	f.send(t, "alice", "bob", "hey", 0, false)
	f.send(t, "carol", "alice", "yo", time.Second, false)

	convs, err := f.svc.Conversations(ctx, f.users["alice"].ID)
	if err != nil {
		t.Fatalf("conversations: %v", err)
	}
	if len(convs) != 2 || convs[0].Peer != "carol" || convs[0].IsOnline || !convs[1].IsOnline {
		t.Fatalf("unexpected conversations: %+v", convs)
	}

	users, err := f.svc.OnlineUsers(ctx, f.users["alice"].ID)
	if err != nil {
		t.Fatalf("online users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 other users, got %d", len(users))
	}
	for _, u := range users {
		if u.Username == "alice" {
			t.Fatalf("caller must not be listed")
		}
		if u.IsOnline != (u.Username == "bob") {
			t.Fatalf("wrong presence for %s", u.Username)
		}
	}
}

func TestBullyingReportAndCanChat(t *testing.T) {
	f := newFixture(t, nil, 3)
	ctx := context.Background()

	f.send(t, "alice", "bob", "mean", 0, true)
	f.send(t, "alice", "carol", "mean", time.Second, true)
	f.send(t, "bob", "alice", "mean back", 2*time.Second, true)

	report, err := f.svc.BullyingReport(ctx, f.users["alice"].ID)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Sent != 2 || report.Received != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	access, err := f.svc.CanChat(ctx, f.users["alice"].ID)
	if err != nil {
		t.Fatalf("can chat: %v", err)
	}
	if !access.Allowed || access.TotalFlaggedCount != 2 {
		t.Fatalf("alice should still be allowed: %+v", access)
	}

	if err := f.store.CreateComment(ctx, &store.Comment{PostID: "p", UserID: f.users["alice"].ID, Content: "mean", IsBullying: true}); err != nil {
		t.Fatalf("comment: %v", err)
	}
	access, err = f.svc.CanChat(ctx, f.users["alice"].ID)
	if err != nil {
		t.Fatalf("can chat: %v", err)
	}
	if access.Allowed || access.Breakdown.Comments != 1 || access.Breakdown.Messages != 2 || access.MaxAllowed != 3 {
		t.Fatalf("alice should be blocked: %+v", access)
	}
}
