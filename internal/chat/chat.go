// Package chat holds a multi-turn conversation with the provider's chat
// endpoint.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/FranksOps/ddgs/internal/transport"
	"github.com/FranksOps/ddgs/pkg/fault"
)

// Default endpoints.
const (
	StatusURL = "https://duckduckgo.com/duckchat/v1/status"
	ChatURL   = "https://duckduckgo.com/duckchat/v1/chat"
)

const (
	headerAccept = "x-vqd-accept"
	headerToken  = "x-vqd-4"

	conversationLimit = "ERR_CONVERSATION_LIMIT"
)

var (
	// ErrUnknownModel is returned by New for a model outside Models.
	ErrUnknownModel = errors.New("unknown chat model")
	// ErrBusy is returned when Send is called while a turn is in flight.
	ErrBusy = errors.New("chat turn already in progress")

	errNoToken   = errors.New("x-vqd-4 header missing")
	errNoReply   = errors.New("no message fragments in reply")
	errBadStatus = errors.New("unexpected error fragment")
	errBadStream = errors.New("reply fragments are not valid JSON")
)

// Model is a short chat model name.
type Model string

const (
	GPT4oMini    Model = "gpt-4o-mini"
	Claude3Haiku Model = "claude-3-haiku"
	Llama3_70B   Model = "llama-3-70b"
	Mixtral8x7B  Model = "mixtral-8x7b"
)

var models = map[Model]string{
	GPT4oMini:    "gpt-4o-mini",
	Claude3Haiku: "claude-3-haiku-20240307",
	Llama3_70B:   "meta-llama/Llama-3-70b-chat-hf",
	Mixtral8x7B:  "mistralai/Mixtral-8x7B-Instruct-v0.1",
}

// Models lists the accepted model names.
func Models() []Model {
	out := make([]Model, 0, len(models))
	for m := range models {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// Message is one turn of the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Exchanger is the part of transport.Transport a session needs: chat error
// replies carry a JSON body that must be read whatever the status.
type Exchanger interface {
	Exchange(ctx context.Context, r transport.Request) (*transport.Response, error)
	Check(r transport.Request, resp *transport.Response) error
}

// Config configures a Session. Zero values fall back to the defaults.
type Config struct {
	Model     Model
	StatusURL string
	ChatURL   string
	Logger    *slog.Logger
}

// Session is one conversation. Turns must not overlap; Messages and Tokens
// may be called from any goroutine.
type Session struct {
	ex        Exchanger
	model     string
	statusURL string
	chatURL   string
	logger    *slog.Logger

	busy atomic.Bool

	mu       sync.Mutex
	token    string
	messages []Message
	tokens   int
}

// New starts an empty conversation. The token is fetched lazily by the
// first Send.
func New(ex Exchanger, cfg Config) (*Session, error) {
	if cfg.Model == "" {
		cfg.Model = GPT4oMini
	}
	model, ok := models[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("chat: %w %q", ErrUnknownModel, cfg.Model)
	}
	if cfg.StatusURL == "" {
		cfg.StatusURL = StatusURL
	}
	if cfg.ChatURL == "" {
		cfg.ChatURL = ChatURL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		ex:        ex,
		model:     model,
		statusURL: cfg.StatusURL,
		chatURL:   cfg.ChatURL,
		logger:    cfg.Logger,
	}, nil
}

// Model returns the provider's identifier of the session's model.
func (s *Session) Model() string { return s.model }

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Tokens returns the approximate number of tokens exchanged so far.
func (s *Session) Tokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

// Send adds a user turn and returns the assistant's reply. The reply is
// appended to the conversation only when the turn succeeds.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token == "" {
		var err error
		if token, err = s.acquire(ctx); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	s.messages = append(s.messages, Message{Role: "user", Content: text})
	s.tokens += estimate(text)
	payload, err := json.Marshal(struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}{s.model, s.messages})
	s.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("chat: encode request: %w", err)
	}

	req := transport.Request{
		Endpoint:    "chat",
		Method:      http.MethodPost,
		URL:         s.chatURL,
		Body:        payload,
		ContentType: "application/json",
		Header:      http.Header{headerToken: {token}},
	}
	resp, err := s.ex.Exchange(ctx, req)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if next := resp.Header.Get(headerToken); next != "" {
		s.token = next
	} else {
		s.token = token
	}
	s.mu.Unlock()

	fragments, err := Fragments(resp.Body)
	if err != nil {
		if cerr := s.ex.Check(req, resp); cerr != nil {
			return "", cerr
		}
		return "", fault.New(fault.ErrMalformedResponse, "chat", s.chatURL, err)
	}
	for _, f := range fragments {
		if f.Get("action").String() == "error" {
			return "", fragmentError(s.chatURL, f)
		}
	}
	if err := s.ex.Check(req, resp); err != nil {
		return "", err
	}

	var reply strings.Builder
	parts := 0
	for _, f := range fragments {
		if m := f.Get("message"); m.Exists() {
			reply.WriteString(m.String())
			parts++
		}
	}
	if parts == 0 {
		return "", fault.New(fault.ErrMalformedResponse, "chat", s.chatURL, errNoReply)
	}

	s.mu.Lock()
	s.messages = append(s.messages, Message{Role: "assistant", Content: reply.String()})
	s.tokens += parts
	s.mu.Unlock()

	s.logger.Debug("chat turn complete", "model", s.model, "fragments", parts)
	return reply.String(), nil
}

// acquire fetches the first conversation token.
func (s *Session) acquire(ctx context.Context) (string, error) {
	req := transport.Request{
		Endpoint: "chat-status",
		URL:      s.statusURL,
		Header:   http.Header{headerAccept: {"1"}},
	}
	resp, err := s.ex.Exchange(ctx, req)
	if err != nil {
		return "", err
	}
	if err := s.ex.Check(req, resp); err != nil {
		return "", err
	}
	token := resp.Header.Get(headerToken)
	if token == "" {
		return "", fault.New(fault.ErrMalformedResponse, "chat-status", s.statusURL, errNoToken)
	}
	return token, nil
}

// Fragments splits a streamed reply on its "data:" markers and decodes the
// JSON objects among them as one array. Stream sentinels such as [DONE] are
// dropped; a fragment that is not valid JSON fails the whole reply.
func Fragments(body []byte) ([]gjson.Result, error) {
	var parts [][]byte
	for _, part := range bytes.Split(body, []byte("data:")) {
		part = bytes.TrimSpace(part)
		if len(part) == 0 || part[0] != '{' {
			continue
		}
		parts = append(parts, part)
	}

	array := make([]byte, 0, len(body)+2)
	array = append(array, '[')
	array = append(array, bytes.Join(parts, []byte(","))...)
	array = append(array, ']')
	if !gjson.ValidBytes(array) {
		return nil, errBadStream
	}
	return gjson.ParseBytes(array).Array(), nil
}

func fragmentError(chatURL string, f gjson.Result) error {
	status := f.Get("status").Int()
	typ := f.Get("type").String()
	cause := fmt.Errorf("%s (status %d)", typ, status)
	switch {
	case status == http.StatusTooManyRequests && typ == conversationLimit:
		return fault.New(fault.ErrConversationLimit, "chat", chatURL, cause)
	case status == http.StatusTooManyRequests:
		return fault.New(fault.ErrRateLimited, "chat", chatURL, cause)
	case typ == "":
		return fault.New(fault.ErrChat, "chat", chatURL, errBadStatus)
	default:
		return fault.New(fault.ErrChat, "chat", chatURL, cause)
	}
}

// estimate approximates the token count of a user turn.
func estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n < 4 {
		return 1
	}
	return n / 4
}
