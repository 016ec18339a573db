// Package otp issues and verifies one-time login codes. Codes live in
// process memory only, so with several instances a code must be verified on
// the instance that issued it.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalid is returned for a wrong code or an unknown email.
	ErrInvalid = errors.New("otp: invalid code")
	// ErrExpired is returned when the code outlived its TTL.
	ErrExpired = errors.New("otp: code expired")
	// ErrTooManyAttempts is returned once the attempt budget is spent.
	ErrTooManyAttempts = errors.New("otp: too many attempts")
)

const codeDigits = 6

type entry struct {
	hash      []byte
	expiresAt time.Time
	attempts  int
}

// Options configures a Store.
type Options struct {
	TTL           time.Duration
	MaxAttempts   int
	SweepInterval time.Duration
	// Cost is the bcrypt cost used to hash codes.
	Cost int
}

// Store holds the outstanding codes keyed by email.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	opts    Options
	now     func() time.Time
	compare func(hash, code []byte) error

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// New returns a Store. Zero options get a 10 minute TTL, 5 attempts and a one
// minute sweep.
func New(opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.Cost == 0 {
		opts.Cost = bcrypt.DefaultCost
	}
	return &Store{entries: make(map[string]*entry), opts: opts, now: time.Now, compare: bcrypt.CompareHashAndPassword}
}

// TTL returns the code lifetime.
func (s *Store) TTL() time.Duration { return s.opts.TTL }

// Issue creates a code for email, replacing any earlier one.
func (s *Store) Issue(email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.opts.Cost)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}

	s.mu.Lock()
	s.entries[email] = &entry{hash: hash, expiresAt: s.now().Add(s.opts.TTL)}
	s.mu.Unlock()
	return code, nil
}

// Verify checks code for email. A matching code is consumed. The attempt is
// counted before the hash comparison, which runs without holding the lock.
func (s *Store) Verify(email, code string) error {
	s.mu.Lock()
	e, ok := s.entries[email]
	if !ok {
		s.mu.Unlock()
		return ErrInvalid
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, email)
		s.mu.Unlock()
		return ErrExpired
	}
	if e.attempts >= s.opts.MaxAttempts {
		delete(s.entries, email)
		s.mu.Unlock()
		return ErrTooManyAttempts
	}
	e.attempts++
	hash := e.hash
	s.mu.Unlock()

	matched := s.compare(hash, []byte(code)) == nil

	s.mu.Lock()
	defer s.mu.Unlock()
	// the code was consumed or reissued meanwhile
	if s.entries[email] != e {
		return ErrInvalid
	}
	if !matched {
		if e.attempts >= s.opts.MaxAttempts {
			delete(s.entries, email)
			return ErrTooManyAttempts
		}
		return ErrInvalid
	}
	delete(s.entries, email)
	return nil
}

// Sweep removes expired codes and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for email, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, email)
			n++
		}
	}
	return n
}

// Len returns the number of outstanding codes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run sweeps expired codes until ctx is done.
func (s *Store) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Start runs the janitor in the background until Close.
func (s *Store) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		_ = s.Run(ctx)
	}()
}

// Close stops a janitor started with Start.
func (s *Store) Close() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
	})
}

func generateCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
