package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rook-computer/captcha/internal/render"
)

var ErrStore = errors.New("session store")

// Service hands out many concurrent challenges from one Renderer. Each answer
// lives in Store under a fresh id and can be checked once.
type Service struct {
	Renderer *render.Renderer
	Store    Store

	Logger interface {
		Infof(string, string, ...interface{})
		Errorf(string, string, ...interface{})
	}

	mu sync.Mutex
}

func NewService(r *render.Renderer, store Store) *Service {
	return &Service{Renderer: r, Store: store}
}

// Start renders a new challenge and stores its answer. The returned challenge
// carries the answer; only its image should leave the process.
func (s *Service) Start(ctx context.Context) (string, *render.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	ch := s.Renderer.NewChallenge()
	s.mu.Unlock()

	id := uuid.NewString()
	if err := s.Store.Set(id, ch.Code()); err != nil {
		if s.Logger != nil {
			s.Logger.Errorf("session", "store challenge %s: %v", id, err)
		}
		return "", nil, fmt.Errorf("%w: set %s: %w", ErrStore, id, err)
	}
	if s.Logger != nil {
		s.Logger.Infof("session", "challenge %s started", id)
	}
	return id, ch, nil
}

// Verify checks guess against the challenge id and consumes it, so every id
// gets exactly one attempt. Unknown and expired ids report false. Matching is
// exact whatever the Store's own Verify does.
func (s *Service) Verify(ctx context.Context, id, guess string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok := render.VerifyCode(s.Store.Get(id, true), guess)
	if s.Logger != nil {
		s.Logger.Infof("session", "challenge %s verified: %t", id, ok)
	}
	return ok, nil
}
