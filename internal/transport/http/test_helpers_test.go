package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/safetalk/safetalk-server/internal/auth"
	"github.com/safetalk/safetalk-server/internal/config"
	"github.com/safetalk/safetalk-server/internal/core"
	"github.com/safetalk/safetalk-server/internal/moderation"
	"github.com/safetalk/safetalk-server/internal/proto"
	"github.com/safetalk/safetalk-server/internal/service/chat"
	"github.com/safetalk/safetalk-server/internal/service/comments"
	"github.com/safetalk/safetalk-server/internal/store/sqlite"
)

type testEnv struct {
	ts      *httptest.Server
	handler http.Handler
	store   *sqlite.SQLiteStore
	auth    *auth.Service
	hub     core.Hub
}

// newTestEnv wires the full stack on an in-memory database.
func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.ClassifierTimeout = time.Second
	cfg.RateLimitPerMinute = 0
	if mutate != nil {
		mutate(&cfg)
	}

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	logger := zerolog.Nop()
	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})

	lexicon := moderation.NewLexicon(cfg.FlaggedTerms)
	gate := moderation.NewGate(moderation.NewLexicalClassifier(lexicon), lexicon, moderation.GateConfig{
		Threshold: cfg.MessageThreshold,
		Timeout:   cfg.ClassifierTimeout,
		Workers:   cfg.ClassifierWorkers,
	}, &logger)
	ledger := moderation.NewLedger(st, st, cfg.MaxBullyingCount)

	opts := core.Options{
		Store:        st,
		Moderator:    gate,
		Auth:         authService,
		RequireToken: cfg.JWTRequired,
		Logger:       &logger,
	}
	if cfg.EnforceAbuseGate {
		opts.Access = ledger
	}
	hub := core.NewHub(opts)

	ctx, cancel := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	chatService := chat.New(st, hub.Presence(), ledger, cfg.HistoryPageLimit)
	commentService := comments.New(st, ledger, gate, cfg.CommentThreshold, &logger)
	server := NewServer(hub, authService, chatService, commentService, &cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-hubDone
		_ = st.Close()
	})

	return &testEnv{ts: ts, handler: server.Handler, store: st, auth: authService, hub: hub}
}

func (e *testEnv) register(t *testing.T, username string) string {
	t.Helper()

	token, err := e.auth.Register(context.Background(), username, username+"@example.com", "password123")
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// wireOutbound mirrors proto.Outbound with undecoded data.
type wireOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func (e *testEnv) dial(ctx context.Context, t *testing.T) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func writeInbound(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

// readEvent reads frames until the named event arrives. Errors fail the test.
func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, name string) wireOutbound {
	t.Helper()

	for {
		var out wireOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read while waiting for %s: %v", name, err)
		}
		if out.Type == proto.OutboundTypeError {
			t.Fatalf("unexpected error while waiting for %s: %+v", name, out.Error)
		}
		if out.Event == name {
			return out
		}
	}
}

// readError reads frames until an error arrives.
func readError(ctx context.Context, t *testing.T, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for {
		var out wireOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read while waiting for error: %v", err)
		}
		if out.Type == proto.OutboundTypeError {
			return out.Error
		}
	}
}

func connectWS(ctx context.Context, t *testing.T, e *testEnv, username, token string) *websocket.Conn {
	t.Helper()

	conn := e.dial(ctx, t)
	writeInbound(ctx, t, conn, proto.InboundTypeConnect, proto.ConnectData{Username: username, Token: token})
	readEvent(ctx, t, conn, proto.EventConnected)
	return conn
}
