package chat

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

type State string

const (
	StateIdle       State = "idle"
	StateResponding State = "responding"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("assistant is still responding")
)

type Options struct {
	Script       Script
	Responder    Responder     // nil = KeywordResponder over Script
	ReplyTimeout time.Duration // bound on one Responder call
	Log          *zap.Logger
	Now          func() time.Time
}

// Session is one chat transcript with at most one reply in flight.
type Session struct {
	ID string

	opts Options

	mu         sync.Mutex
	transcript []Message
	state      State
	gen        uint64 // bumped by Submit and Reset; stale replies are dropped
	cancel     context.CancelFunc
	idle       chan struct{}
	active     time.Time // last Submit, Reset or landed reply
}

func NewSession(opts Options) *Session {
	if opts.Responder == nil {
		opts.Responder = KeywordResponder{Script: opts.Script}
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 10 * time.Second
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Session{ID: uuid.NewString(), opts: opts}
	s.resetLocked()
	return s
}

// Submit appends the user's message and schedules the reply.
func (s *Session) Submit(text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateResponding {
		return Message{}, ErrBusy
	}

	history := s.snapshotLocked()
	msg := Message{Role: RoleUser, Text: text, Time: s.opts.Now()}
	s.transcript = append(s.transcript, msg)
	s.active = msg.Time
	s.state = StateResponding
	s.gen++
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.idle = make(chan struct{})

	go s.respond(ctx, s.gen, history, text)
	return msg, nil
}

func (s *Session) respond(ctx context.Context, gen uint64, history []Message, text string) {
	timer := time.NewTimer(s.typingDelay())
	select {
	case <-ctx.Done():
		timer.Stop()
		return
	case <-timer.C:
	}

	rctx, rcancel := context.WithTimeout(ctx, s.opts.ReplyTimeout)
	reply, err := s.opts.Responder.Reply(rctx, history, text)
	rcancel()
	if ctx.Err() != nil {
		return // reset while we were waiting
	}
	if err != nil || strings.TrimSpace(reply) == "" {
		s.opts.Log.Warn("chat reply failed, using fallback", zap.String("session_id", s.ID), zap.Error(err))
		reply = s.opts.Script.FallbackReply
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state != StateResponding {
		return
	}
	s.active = s.opts.Now()
	s.transcript = append(s.transcript, Message{Role: RoleAssistant, Text: reply, Time: s.active})
	s.settleLocked()
}

func (s *Session) typingDelay() time.Duration {
	d := s.opts.Script.TypingDelay
	if j := s.opts.Script.TypingJitter; j > 0 {
		d += rand.N(j)
	}
	return d
}

// Reset drops any in-flight reply and leaves only the greeting.
func (s *Session) Reset() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.resetLocked()
	return s.snapshotLocked()
}

// Close cancels the in-flight reply without touching the transcript.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.state == StateResponding {
		s.settleLocked()
	}
}

func (s *Session) resetLocked() {
	if s.state == StateResponding {
		s.settleLocked()
	}
	s.active = s.opts.Now()
	s.transcript = []Message{{Role: RoleAssistant, Text: s.opts.Script.Greeting, Time: s.active}}
	s.state = StateIdle
	if s.idle == nil {
		s.idle = make(chan struct{})
		close(s.idle)
	}
}

func (s *Session) settleLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateIdle
	close(s.idle)
}

func (s *Session) snapshotLocked() []Message {
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActive reports when the session last saw a message or a reset.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// WaitIdle blocks until no reply is in flight.
func (s *Session) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	ch := s.idle
	s.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
