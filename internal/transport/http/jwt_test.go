package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/safetalk/safetalk-server/internal/config"
	"github.com/safetalk/safetalk-server/internal/core"
	"github.com/safetalk/safetalk-server/internal/proto"
)

func requireJWT(cfg *config.Config) { cfg.JWTRequired = true }

func TestWebSocketJWTSuccess(t *testing.T) {
	env := newTestEnv(t, requireJWT)
	token := env.register(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(ctx, t)
	writeInbound(ctx, t, conn, proto.InboundTypeConnect, proto.ConnectData{Token: token})

	var connected proto.EventConnectedData
	if err := json.Unmarshal(readEvent(ctx, t, conn, proto.EventConnected).Data, &connected); err != nil {
		t.Fatalf("unmarshal connected: %v", err)
	}
	if connected.Username != "alice" {
		t.Fatalf("expected username from token, got %q", connected.Username)
	}
}

func TestWebSocketJWTInvalid(t *testing.T) {
	env := newTestEnv(t, requireJWT)
	env.register(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(ctx, t)

	writeInbound(ctx, t, conn, proto.InboundTypeConnect, proto.ConnectData{Username: "alice"})
	if e := readError(ctx, t, conn); e.Code != core.ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized without token, got %+v", e)
	}

	writeInbound(ctx, t, conn, proto.InboundTypeConnect, proto.ConnectData{Username: "alice", Token: "invalid"})
	if e := readError(ctx, t, conn); e.Code != core.ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized for bad token, got %+v", e)
	}
}

func TestRESTRequiresBearerToken(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "bad token", header: "Bearer nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/api/chat/conversations", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}
