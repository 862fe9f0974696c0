// Package bot keeps per-room conversations with the shopping assistant and
// serializes completions per room.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Mall/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrBusy   = errors.New("bot: too many pending requests for room")
	ErrClosed = errors.New("bot: store closed")
)

// Completer produces the assistant reply for an ordered list of turns.
type Completer interface {
	Complete(ctx context.Context, turns []domain.Turn) (string, error)
}

type Options struct {
	Persona    string
	Fallback   string
	HistoryCap int
	MaxPending int
	Timeout    time.Duration
}

type jobKind int

const (
	jobAsk jobKind = iota
	jobClear
)

type result struct {
	text string
	err  error
}

type job struct {
	ctx  context.Context
	kind jobKind
	text string
	done chan result
}

// lane is the FIFO of one room. The running job is already popped, so
// len(queue) is the number of waiting requests.
type lane struct {
	queue []*job
}

type Store struct {
	repo      Repository
	completer Completer
	opts      Options
	now       func() time.Time

	mu     sync.Mutex
	lanes  map[domain.RoomID]*lane
	closed bool
	wg     sync.WaitGroup
}

func NewStore(repo Repository, completer Completer, opts Options) *Store {
	if opts.MaxPending <= 0 {
		opts.MaxPending = 8
	}
	return &Store{
		repo:      repo,
		completer: completer,
		opts:      opts,
		now:       time.Now,
		lanes:     make(map[domain.RoomID]*lane),
	}
}

// Ask appends text as a user turn and returns the assistant reply. Backend
// failures yield the fallback text. Errors are ErrBusy, ErrClosed or the
// caller's context error.
func (s *Store) Ask(ctx context.Context, room domain.RoomID, text string) (string, error) {
	r, err := s.EnqueueAsk(ctx, room, text)
	if err != nil {
		return "", err
	}
	return r.Wait(ctx)
}

// Clear drops the room history. It is ordered behind asks already queued
// for the room and is never rejected as busy.
func (s *Store) Clear(ctx context.Context, room domain.RoomID) error {
	r, err := s.EnqueueClear(ctx, room)
	if err != nil {
		return err
	}
	_, err = r.Wait(ctx)
	return err
}

// EnqueueAsk places an ask at the tail of the room's queue and returns
// without waiting. Requests enqueued from one goroutine run in call order.
// If ctx is done before the ask starts, it is skipped.
func (s *Store) EnqueueAsk(ctx context.Context, room domain.RoomID, text string) (*Reply, error) {
	return s.enqueue(room, &job{ctx: ctx, kind: jobAsk, text: text, done: make(chan result, 1)})
}

// EnqueueClear is the non-blocking form of Clear.
func (s *Store) EnqueueClear(ctx context.Context, room domain.RoomID) (*Reply, error) {
	return s.enqueue(room, &job{ctx: ctx, kind: jobClear, done: make(chan result, 1)})
}

// Reply is a queued request.
type Reply struct {
	done <-chan result
}

// Wait blocks until the request has run or ctx is done. For clears the
// text is empty.
func (r *Reply) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-r.done:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// History returns the stored messages for room, persona first. It is empty
// for rooms without history.
func (s *Store) History(ctx context.Context, room domain.RoomID) ([]domain.Turn, error) {
	conv, err := s.repo.Load(ctx, room)
	if err != nil || conv == nil {
		return nil, err
	}
	return conv.Messages(), nil
}

// Pending reports how many requests wait behind the running one for room.
func (s *Store) Pending(room domain.RoomID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lanes[room]; ok {
		return len(l.queue)
	}
	return 0
}

// Close rejects new requests and waits for queued ones to finish.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Store) enqueue(room domain.RoomID, j *job) (*Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	l, running := s.lanes[room]
	if running && j.kind == jobAsk && len(l.queue) >= s.opts.MaxPending {
		log.Warn().Str("module", "bot").Str("room", string(room)).Int("pending", len(l.queue)).Msg("ask rejected, lane full")
		return nil, ErrBusy
	}
	if !running {
		l = &lane{}
		s.lanes[room] = l
		s.wg.Add(1)
		go s.work(room, l)
	}
	l.queue = append(l.queue, j)
	return &Reply{done: j.done}, nil
}

func (s *Store) work(room domain.RoomID, l *lane) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(l.queue) == 0 {
			delete(s.lanes, room)
			s.mu.Unlock()
			return
		}
		j := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		s.mu.Unlock()

		if err := j.ctx.Err(); err != nil {
			j.done <- result{err: err}
			continue
		}
		switch j.kind {
		case jobAsk:
			j.done <- result{text: s.ask(j.ctx, room, j.text)}
		case jobClear:
			j.done <- result{err: s.clear(j.ctx, room)}
		}
	}
}

func (s *Store) ask(ctx context.Context, room domain.RoomID, text string) string {
	logger := log.With().Str("module", "bot").Str("room", string(room)).Logger()
	ctx = context.WithoutCancel(ctx)

	conv, err := s.repo.Load(ctx, room)
	if err != nil {
		logger.Error().Err(err).Msg("load conversation failed")
		return s.opts.Fallback
	}
	if conv == nil {
		conv = NewConversation(s.opts.Persona, s.now())
	}
	conv.Append(domain.Turn{Role: domain.RoleUser, Content: text}, s.opts.HistoryCap)

	cctx, cancel := ctx, context.CancelFunc(func() {})
	if s.opts.Timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
	}
	reply, err := s.completer.Complete(cctx, conv.Messages())
	cancel()

	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("empty completion")
	}
	if err != nil {
		logger.Warn().Err(err).Int("turns", len(conv.Turns)).Msg("completion failed, answering with fallback")
		reply = s.opts.Fallback
	} else {
		conv.Append(domain.Turn{Role: domain.RoleAssistant, Content: reply}, s.opts.HistoryCap)
	}

	conv.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, room, conv); err != nil {
		logger.Error().Err(err).Msg("save conversation failed")
	}
	logger.Debug().Int("turns", len(conv.Turns)).Msg("ask handled")
	return reply
}

func (s *Store) clear(ctx context.Context, room domain.RoomID) error {
	if err := s.repo.Delete(context.WithoutCancel(ctx), room); err != nil {
		log.Error().Err(err).Str("module", "bot").Str("room", string(room)).Msg("clear conversation failed")
		return err
	}
	log.Debug().Str("module", "bot").Str("room", string(room)).Msg("history cleared")
	return nil
}
