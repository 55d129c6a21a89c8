package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/mojocn/base64Captcha"
	"github.com/rook-computer/captcha/internal/render"
)

// DefaultTTL bounds how long an unanswered challenge stays verifiable.
const DefaultTTL = 10 * time.Minute

// Store keeps challenge answers by id. It is base64Captcha's store contract,
// so the library's stores and the ones here are interchangeable.
type Store = base64Captcha.Store

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// In-process store kinds accepted by NewLocalStore.
const (
	StoreTTL     = "ttl"
	StoreCollect = "collect"
)

// collectThreshold is how many answers base64Captcha's store takes between
// sweeps of expired entries.
const collectThreshold = 1024

var ErrUnknownStore = errors.New("unknown store kind")

// NewLocalStore returns an in-process Store. StoreTTL expires every entry on
// its own deadline and must be started; StoreCollect is base64Captcha's memory
// store, which drops expired entries in batches as new ones arrive.
func NewLocalStore(kind string, ttl time.Duration) (Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	switch kind {
	case StoreTTL, "":
		return NewMemoryStore(ttl), nil
	case StoreCollect:
		return base64Captcha.NewMemoryStore(collectThreshold, ttl), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownStore, kind)
}

// MemoryStore is an in-process Store with per-entry expiry.
type MemoryStore struct {
	cache *ttlcache.Cache[string, string]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		cache: ttlcache.New[string, string](
			ttlcache.WithTTL[string, string](ttl),
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
	}
}

// Start runs the expiry loop until Stop is called. Expired entries are never
// returned even without it.
func (s *MemoryStore) Start() { go s.cache.Start() }

func (s *MemoryStore) Stop() { s.cache.Stop() }

func (s *MemoryStore) Set(id string, value string) error {
	s.cache.Set(id, value, ttlcache.DefaultTTL)
	return nil
}

func (s *MemoryStore) Get(id string, clear bool) string {
	if clear {
		item, ok := s.cache.GetAndDelete(id)
		if !ok || item == nil {
			return ""
		}
		return item.Value()
	}
	item := s.cache.Get(id)
	if item == nil {
		return ""
	}
	return item.Value()
}

func (s *MemoryStore) Verify(id, answer string, clear bool) bool {
	return render.VerifyCode(s.Get(id, clear), answer)
}

// Len counts live entries.
func (s *MemoryStore) Len() int { return s.cache.Len() }
