package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mojocn/base64Captcha"
	"github.com/rook-computer/captcha/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	cfg := render.DefaultConfig()
	cfg.Seed = 7
	cfg.Font.Size = 20
	r, err := render.New(cfg)
	require.NoError(t, err)
	return NewService(r, store)
}

func TestService_StartAndVerify(t *testing.T) {
	store := NewMemoryStore(0)
	svc := newTestService(t, store)
	ctx := context.Background()

	id, ch, err := svc.Start(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, ch.Code(), store.Get(id, false))

	ok, err := svc.Verify(ctx, id, ch.Code())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Verify(ctx, id, ch.Code())
	require.NoError(t, err)
	assert.False(t, ok, "second attempt must fail")
}

func TestService_WrongGuessUsesTheAttempt(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(0))
	ctx := context.Background()

	id, ch, err := svc.Start(ctx)
	require.NoError(t, err)

	ok, err := svc.Verify(ctx, id, ch.Code()+"x")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Verify(ctx, id, ch.Code())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_ChallengesAreIndependent(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(0))
	ctx := context.Background()

	id1, ch1, err := svc.Start(ctx)
	require.NoError(t, err)
	id2, ch2, err := svc.Start(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	ok, err := svc.Verify(ctx, id1, ch1.Code())
	require.NoError(t, err)
	assert.True(t, ok, "older challenge must stay valid")
	ok, err = svc.Verify(ctx, id2, ch2.Code())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_UnknownID(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(0))
	ok, err := svc.Verify(context.Background(), "does-not-exist", "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_Concurrent(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(0))
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, ch, err := svc.Start(ctx)
			if err != nil {
				errs <- err
				return
			}
			ok, err := svc.Verify(ctx, id, ch.Code())
			if err != nil {
				errs <- err
				return
			}
			if !ok {
				errs <- fmt.Errorf("challenge %s did not verify", id)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

type failingStore struct{}

func (failingStore) Set(string, string) error          { return errors.New("boom") }
func (failingStore) Get(string, bool) string           { return "" }
func (failingStore) Verify(string, string, bool) bool { return false }

func swapCase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z':
			return r - 'A' + 'a'
		}
		return r
	}, s)
}

func TestService_Base64CaptchaStore(t *testing.T) {
	svc := newTestService(t, base64Captcha.NewMemoryStore(16, time.Minute))
	ctx := context.Background()

	id, ch, err := svc.Start(ctx)
	require.NoError(t, err)
	ok, err := svc.Verify(ctx, id, ch.Code())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Verify(ctx, id, ch.Code())
	require.NoError(t, err)
	assert.False(t, ok, "answer consumed")

	// The library's own Verify folds case; the service does not.
	id, ch, err = svc.Start(ctx)
	require.NoError(t, err)
	guess := swapCase(ch.Code())
	require.NotEqual(t, ch.Code(), guess)
	ok, err = svc.Verify(ctx, id, guess)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.Verify(ctx, id, ch.Code())
	require.NoError(t, err)
	assert.False(t, ok, "wrong guess consumed the challenge")

	ok, err = svc.Verify(ctx, "unknown", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_StoreFailure(t *testing.T) {
	svc := newTestService(t, failingStore{})
	_, _, err := svc.Start(context.Background())
	assert.ErrorIs(t, err, ErrStore)
}

func TestService_CanceledContext(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := svc.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = svc.Verify(ctx, "x", "y")
	assert.ErrorIs(t, err, context.Canceled)
}
