package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/99minutos/filestore/internal/core/domain"
	"github.com/99minutos/filestore/internal/infrastructure/security"
)

type stubUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	nextID  int
	creates int
	err     error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	c := cloneUser(user)
	c.ID = strconv.Itoa(r.nextID)
	r.users[c.ID] = c
	return cloneUser(c), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// plainHasher keeps tests fast; it is not a real hash.
type plainHasher struct {
	failHash bool
	block    chan struct{}
}

func (h *plainHasher) Hash(password string) (string, error) {
	if h.failHash {
		return "", errors.New("hash failed")
	}
	return "hashed:" + password, nil
}

func (h *plainHasher) Verify(password, hash string) bool {
	if h.block != nil {
		<-h.block
	}
	return hash == "hashed:"+password
}

type stubLimiter struct {
	allowed  bool
	allowErr error
	fails    map[string]int
	resets   map[string]int
}

func newStubLimiter() *stubLimiter {
	return &stubLimiter{allowed: true, fails: map[string]int{}, resets: map[string]int{}}
}

func (l *stubLimiter) Allow(context.Context, string) (bool, error) { return l.allowed, l.allowErr }
func (l *stubLimiter) Fail(_ context.Context, id string) error     { l.fails[id]++; return nil }
func (l *stubLimiter) Reset(_ context.Context, id string) error    { l.resets[id]++; return nil }

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (a *recordingAudit) Publish(ev domain.AuthEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *recordingAudit) kinds() []domain.AuthEventKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuthEventKind, 0, len(a.events))
	for _, ev := range a.events {
		out = append(out, ev.Kind)
	}
	return out
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestJWT(clock *testClock) *security.JWTManager {
	m, err := security.NewJWTManager("test-secret", security.WithClock(clock.Now))
	if err != nil {
		panic(err)
	}
	return m
}

// countingVerifier records which tokens were verified.
type countingVerifier struct {
	inner interface {
		Verify(string) (*domain.Claims, error)
	}
	seen []string
}

func (v *countingVerifier) Verify(token string) (*domain.Claims, error) {
	v.seen = append(v.seen, token)
	return v.inner.Verify(token)
}

type stubFileRepo struct {
	mu        sync.Mutex
	files     map[string]*domain.File
	nextID    int
	createErr error
	updateErr error
}

func newStubFileRepo() *stubFileRepo {
	return &stubFileRepo{files: make(map[string]*domain.File)}
}

func (r *stubFileRepo) Create(_ context.Context, f *domain.File) (*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	c := *f
	c.ID = strconv.Itoa(r.nextID)
	r.files[c.ID] = &c
	out := c
	return &out, nil
}

func (r *stubFileRepo) FindByID(_ context.Context, id string) (*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	c := *f
	return &c, nil
}

func (r *stubFileRepo) List(_ context.Context, offset, limit int) ([]*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.files))
	for id := range r.files {
		n, _ := strconv.Atoi(id)
		ids = append(ids, n)
	}
	sort.Ints(ids)
	var out []*domain.File
	for i, n := range ids {
		if i < offset || len(out) >= limit {
			continue
		}
		c := *r.files[strconv.Itoa(n)]
		out = append(out, &c)
	}
	return out, nil
}

func (r *stubFileRepo) Update(_ context.Context, f *domain.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.files[f.ID]; !ok {
		return domain.ErrFileNotFound
	}
	c := *f
	r.files[f.ID] = &c
	return nil
}

func (r *stubFileRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return domain.ErrFileNotFound
	}
	delete(r.files, id)
	return nil
}

type memBlobs struct {
	mu     sync.Mutex
	data   map[string][]byte
	putErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: make(map[string][]byte)}
}

func (b *memBlobs) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	if b.putErr != nil {
		return 0, b.putErr
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = buf
	return int64(len(buf)), nil
}

func (b *memBlobs) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.data[key]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", key, domain.ErrBlobNotFound)
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.data[key]; !ok {
		return domain.ErrBlobNotFound
	}
	delete(b.data, key)
	return nil
}

func (b *memBlobs) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.data))
	for k := range b.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func body(s string) io.Reader { return strings.NewReader(s) }
