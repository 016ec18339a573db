package otp

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore() (*Store, *time.Time) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s := New(Options{TTL: 10 * time.Minute, MaxAttempts: 3, Cost: bcrypt.MinCost})
	s.now = func() time.Time { return now }
	return s, &now
}

func TestIssueAndVerify(t *testing.T) {
	s, _ := newTestStore()
	code, err := s.Issue("a@example.com")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)

	require.NoError(t, s.Verify("a@example.com", code))
	assert.ErrorIs(t, s.Verify("a@example.com", code), ErrInvalid, "codes are single use")
}

func TestReissueReplacesCode(t *testing.T) {
	s, _ := newTestStore()
	first, err := s.Issue("a@example.com")
	require.NoError(t, err)
	second, err := s.Issue("a@example.com")
	require.NoError(t, err)
	if first == second {
		t.Skip("random codes collided")
	}
	assert.ErrorIs(t, s.Verify("a@example.com", first), ErrInvalid)
	assert.NoError(t, s.Verify("a@example.com", second))
}

func TestExpiry(t *testing.T) {
	s, now := newTestStore()
	code, err := s.Issue("a@example.com")
	require.NoError(t, err)

	*now = now.Add(10 * time.Minute)
	assert.ErrorIs(t, s.Verify("a@example.com", code), ErrExpired)
	assert.Zero(t, s.Len())
}

func TestAttemptLimit(t *testing.T) {
	s, _ := newTestStore()
	code, err := s.Issue("a@example.com")
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, s.Verify("a@example.com", wrong), ErrInvalid)
	assert.ErrorIs(t, s.Verify("a@example.com", wrong), ErrInvalid)
	assert.ErrorIs(t, s.Verify("a@example.com", wrong), ErrTooManyAttempts)
	assert.ErrorIs(t, s.Verify("a@example.com", code), ErrInvalid, "entry is dropped after the last attempt")
}

func TestUnknownEmail(t *testing.T) {
	s, _ := newTestStore()
	assert.ErrorIs(t, s.Verify("nobody@example.com", "123456"), ErrInvalid)
}

func TestSweep(t *testing.T) {
	s, now := newTestStore()
	_, err := s.Issue("old@example.com")
	require.NoError(t, err)
	*now = now.Add(5 * time.Minute)
	_, err = s.Issue("new@example.com")
	require.NoError(t, err)

	*now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestJanitorStopsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(Options{SweepInterval: time.Millisecond, Cost: bcrypt.MinCost})
	s.Start()
	time.Sleep(5 * time.Millisecond)
	s.Close()
	s.Close()
}

func TestRunReturnsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(Options{Cost: bcrypt.MinCost})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}

func TestVerifyComparesWithoutHoldingLock(t *testing.T) {
	s, _ := newTestStore()
	code, err := s.Issue("a@example.com")
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	s.compare = func(hash, code []byte) error {
		close(entered)
		<-release
		return bcrypt.CompareHashAndPassword(hash, code)
	}

	done := make(chan error, 1)
	go func() { done <- s.Verify("a@example.com", code) }()
	<-entered

	// other callers are not blocked by the pending comparison
	issued := make(chan error, 1)
	go func() {
		_, err := s.Issue("b@example.com")
		issued <- err
	}()
	select {
	case err := <-issued:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Issue blocked while a code was being compared")
	}
	assert.Equal(t, 2, s.Len())

	close(release)
	assert.NoError(t, <-done)
	assert.Equal(t, 1, s.Len())
}

func TestConcurrentVerifyConsumesOnce(t *testing.T) {
	s, _ := newTestStore()
	s.opts.MaxAttempts = 20
	code, err := s.Issue("a@example.com")
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Verify("a@example.com", code) == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, ok.Load())
	assert.Zero(t, s.Len())
}

func TestReissueDuringVerifyRejectsOldCode(t *testing.T) {
	s, _ := newTestStore()
	code, err := s.Issue("a@example.com")
	require.NoError(t, err)

	s.compare = func(hash, c []byte) error {
		_, err := s.Issue("a@example.com")
		require.NoError(t, err)
		return bcrypt.CompareHashAndPassword(hash, c)
	}
	assert.ErrorIs(t, s.Verify("a@example.com", code), ErrInvalid)
	assert.Equal(t, 1, s.Len(), "the reissued code stays valid")
}
