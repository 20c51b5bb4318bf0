package comments

import (
	"context"
	"errors"
	"testing"

	"github.com/safetalk/safetalk-server/internal/moderation"
	"github.com/safetalk/safetalk-server/internal/store"
	"github.com/safetalk/safetalk-server/internal/store/sqlite"
)

func newTestService(t *testing.T, maxAllowed int) (*Service, *sqlite.SQLiteStore, *store.User) {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	user, err := st.CreateUser(context.Background(), "alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	lexicon := moderation.NewLexicon([]string{"idiot"})
	gate := moderation.NewGate(moderation.NewLexicalClassifier(lexicon), lexicon, moderation.GateConfig{Threshold: 0.6}, nil)
	ledger := moderation.NewLedger(st, st, maxAllowed)

	return New(st, ledger, gate, 0.5, nil), st, user
}

func TestCreateClassifiesAndCounts(t *testing.T) {
	svc, st, alice := newTestService(t, 5)
	ctx := context.Background()

	clean, err := svc.Create(ctx, alice.ID, alice.Username, "post-1", "nice photo")
	if err != nil {
		t.Fatalf("create clean: %v", err)
	}
	if clean.IsBullying || clean.ID == "" {
		t.Fatalf("unexpected clean comment: %+v", clean)
	}

	flagged, err := svc.Create(ctx, alice.ID, alice.Username, "post-1", "what an idiot")
	if err != nil {
		t.Fatalf("create flagged: %v", err)
	}
	if !flagged.IsBullying {
		t.Fatalf("expected comment to be flagged")
	}

	n, err := st.CountFlaggedComments(ctx, alice.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 flagged comment, got %d", n)
	}
}

func TestCreateBlockedAtGate(t *testing.T) {
	svc, st, alice := newTestService(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Create(ctx, alice.ID, alice.Username, "post-1", "idiot"); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	if _, err := svc.Create(ctx, alice.ID, alice.Username, "post-1", "sorry"); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}

	n, err := st.CountFlaggedComments(ctx, alice.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("blocked comment must not be stored, flagged count %d", n)
	}
}

func TestCreateValidates(t *testing.T) {
	svc, _, alice := newTestService(t, 5)
	ctx := context.Background()

	if _, err := svc.Create(ctx, alice.ID, alice.Username, "", "hi"); !errors.Is(err, ErrInvalidPost) {
		t.Fatalf("expected ErrInvalidPost, got %v", err)
	}
	if _, err := svc.Create(ctx, alice.ID, alice.Username, "post-1", "   "); !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("expected ErrInvalidContent, got %v", err)
	}
}
