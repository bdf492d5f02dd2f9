package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/FranksOps/ddgs/internal/fingerprint"
	"github.com/FranksOps/ddgs/internal/transport"
	"github.com/FranksOps/ddgs/pkg/fault"
)

const reply = "data: {\"role\":\"assistant\",\"message\":\"Hel\",\"created\":1,\"action\":\"success\",\"model\":\"gpt-4o-mini\"}\n\n" +
	"data: {\"role\":\"assistant\",\"message\":\"lo\",\"created\":1,\"action\":\"success\",\"model\":\"gpt-4o-mini\"}\n\n" +
	"data: {\"role\":\"assistant\",\"created\":1,\"action\":\"success\"}\n\n" +
	"data: [DONE]\n"

type server struct {
	*httptest.Server
	statusHits atomic.Int32
	chatHits   atomic.Int32
	chat       func(w http.ResponseWriter, r *http.Request)
}

func newServer(t *testing.T, chat func(w http.ResponseWriter, r *http.Request)) *server {
	s := &server{chat: chat}
	mux := http.NewServeMux()
	mux.HandleFunc("/duckchat/v1/status", func(w http.ResponseWriter, r *http.Request) {
		s.statusHits.Add(1)
		if r.Header.Get("x-vqd-accept") != "1" {
			t.Errorf("expected x-vqd-accept header")
		}
		w.Header().Set("x-vqd-4", "4-first")
	})
	mux.HandleFunc("/duckchat/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		s.chatHits.Add(1)
		s.chat(w, r)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newSession(t *testing.T, s *server, model Model) *Session {
	t.Helper()
	tr, err := transport.New(transport.Config{Profile: fingerprint.ProfileGo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(tr.Close)
	sess, err := New(tr, Config{
		Model:     model,
		StatusURL: s.URL + "/duckchat/v1/status",
		ChatURL:   s.URL + "/duckchat/v1/chat",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sess
}

func TestSession_MultiTurn(t *testing.T) {
	var s *server
	s = newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model    string    `json:"model"`
			Messages []Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "claude-3-haiku-20240307" {
			t.Errorf("unexpected model %q", body.Model)
		}
		switch s.chatHits.Load() {
		case 1:
			if got := r.Header.Get("x-vqd-4"); got != "4-first" {
				t.Errorf("first turn token %q", got)
			}
			if len(body.Messages) != 1 {
				t.Errorf("expected 1 message, got %d", len(body.Messages))
			}
		case 2:
			if got := r.Header.Get("x-vqd-4"); got != "4-second" {
				t.Errorf("second turn token %q", got)
			}
			if len(body.Messages) != 3 {
				t.Errorf("expected 3 messages, got %d", len(body.Messages))
			}
		}
		w.Header().Set("x-vqd-4", "4-second")
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(reply))
	})
	sess := newSession(t, s, Claude3Haiku)

	for _, q := range []string{"Hi there", "again"} {
		got, err := sess.Send(context.Background(), q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "Hello" {
			t.Errorf("expected reply Hello, got %q", got)
		}
	}

	if n := s.statusHits.Load(); n != 1 {
		t.Errorf("expected the token to be fetched once, got %d", n)
	}
	want := []Message{
		{Role: "user", Content: "Hi there"},
		{Role: "assistant", Content: "Hello"},
		{Role: "user", Content: "again"},
		{Role: "assistant", Content: "Hello"},
	}
	if diff := cmp.Diff(want, sess.Messages()); diff != "" {
		t.Errorf("Messages() mismatch (-want +got):\n%s", diff)
	}
	// "Hi there" = 2, 2 fragments, "again" = 1, 2 fragments
	if got := sess.Tokens(); got != 7 {
		t.Errorf("expected 7 tokens, got %d", got)
	}
}

func TestSession_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"conversation limit", 429, `data: {"action":"error","status":429,"type":"ERR_CONVERSATION_LIMIT"}` + "\n\ndata: [LIMIT_CONVERSATION]\n", fault.ErrConversationLimit},
		{"rate limited", 429, `data: {"action":"error","status":429,"type":"ERR_INPUT_LIMIT"}`, fault.ErrRateLimited},
		{"other error", 400, `data: {"action":"error","status":400,"type":"ERR_BAD_REQUEST"}`, fault.ErrChat},
		{"blocked without fragments", 403, `forbidden`, fault.ErrRateLimited},
		{"empty reply", 200, "data: [DONE]\n", fault.ErrMalformedResponse},
		{"truncated fragment", 200, "data: {\"message\":\"Hel\"}\n\ndata: {\"message\":\"lo wor\n\ndata: {\"message\":\"ld\"}\n\ndata: [DONE]\n", fault.ErrMalformedResponse},
		{"truncated error page", 403, `data: {"action":"err`, fault.ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			sess := newSession(t, s, GPT4oMini)

			_, err := sess.Send(context.Background(), "hello")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			// the user turn stays, no assistant reply is recorded
			if diff := cmp.Diff([]Message{{Role: "user", Content: "hello"}}, sess.Messages()); diff != "" {
				t.Errorf("Messages() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNew_UnknownModel(t *testing.T) {
	if _, err := New(nil, Config{Model: "gpt-5"}); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
	sess, err := New(nil, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Model() != "gpt-4o-mini" {
		t.Errorf("expected default model, got %q", sess.Model())
	}
	if len(Models()) != 4 {
		t.Errorf("expected 4 models, got %v", Models())
	}
}

func TestFragments(t *testing.T) {
	got, err := Fragments([]byte("data: {\"message\":\"a\"}\n\ndata: {\"message\":\"b\"}\n\ndata: [DONE]\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Get("message").String() != "a" || got[1].Get("message").String() != "b" {
		t.Errorf("unexpected fragments %v", got)
	}

	got, err = Fragments([]byte("data: [DONE]\n"))
	if err != nil || len(got) != 0 {
		t.Errorf("sentinel only: got %v, %v; want no fragments", got, err)
	}

	if _, err := Fragments([]byte("data: {\"message\":\"a\"}\n\ndata: {\"message\":\"b\n")); !errors.Is(err, errBadStream) {
		t.Errorf("expected errBadStream for a truncated fragment, got %v", err)
	}
}
