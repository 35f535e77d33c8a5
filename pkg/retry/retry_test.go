package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errThrottled = errors.New("throttled")
	errFlaky     = errors.New("flaky")
	errFatal     = errors.New("fatal")
)

type hintedErr struct{ wait time.Duration }

func (h hintedErr) Error() string { return "hinted" }

// recordingSleeper guarda as esperas sem dormir.
type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func hintOf(err error) (time.Duration, bool) {
	var h hintedErr
	if errors.As(err, &h) {
		return h.wait, true
	}
	return 0, false
}

func newRunner(s *recordingSleeper, maxThrottle, maxGeneric int) *Runner {
	return New(s.sleep,
		Policy{
			Name:       "rate_limit",
			MaxRetries: maxThrottle,
			Classify: func(err error) bool {
				var h hintedErr
				return errors.Is(err, errThrottled) || errors.As(err, &h)
			},
			Backoff: HintOr(hintOf, Linear(10*time.Second)),
		},
		Policy{
			Name:       "generic",
			MaxRetries: maxGeneric,
			Classify:   func(err error) bool { return errors.Is(err, errFlaky) },
			Backoff:    Fixed(time.Second),
		},
	)
}

func TestRunner_Do(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantWaits []time.Duration
		check     func(t *testing.T, err error)
	}{
		{
			name:      "Sucesso na primeira chamada",
			errs:      []error{nil},
			wantCalls: 1,
			wantWaits: nil,
			check:     func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:      "Backoff linear sem dica",
			errs:      []error{errThrottled, errThrottled, nil},
			wantCalls: 3,
			wantWaits: []time.Duration{10 * time.Second, 20 * time.Second},
			check:     func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:      "Dica do provedor tem precedência",
			errs:      []error{hintedErr{wait: 5 * time.Second}, nil},
			wantCalls: 2,
			wantWaits: []time.Duration{5 * time.Second},
			check:     func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:      "Throttling esgotado",
			errs:      []error{errThrottled, errThrottled, errThrottled, errThrottled, nil},
			wantCalls: 4,
			wantWaits: []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second},
			check: func(t *testing.T, err error) {
				var exhausted *ExhaustedError
				require.ErrorAs(t, err, &exhausted)
				assert.Equal(t, "rate_limit", exhausted.Policy)
				assert.Equal(t, 4, exhausted.Attempts)
				assert.ErrorIs(t, err, errThrottled)
			},
		},
		{
			name:      "Contadores independentes por política",
			errs:      []error{errFlaky, errThrottled, errFlaky, nil},
			wantCalls: 4,
			wantWaits: []time.Duration{time.Second, 10 * time.Second, time.Second},
			check:     func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:      "Erro genérico esgotado",
			errs:      []error{errFlaky, errFlaky, errFlaky},
			wantCalls: 3,
			wantWaits: []time.Duration{time.Second, time.Second},
			check: func(t *testing.T, err error) {
				var exhausted *ExhaustedError
				require.ErrorAs(t, err, &exhausted)
				assert.Equal(t, "generic", exhausted.Policy)
			},
		},
		{
			name:      "Erro não classificado não é retentado",
			errs:      []error{errFatal},
			wantCalls: 1,
			wantWaits: nil,
			check:     func(t *testing.T, err error) { assert.ErrorIs(t, err, errFatal) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &recordingSleeper{}
			calls := 0

			err := newRunner(s, 3, 2).Do(context.Background(), func(context.Context) error {
				e := tt.errs[calls]
				calls++
				return e
			})

			tt.check(t, err)
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantWaits, s.waits)
		})
	}
}

func TestRunner_OnRetry(t *testing.T) {
	s := &recordingSleeper{}
	var seen []string

	runner := newRunner(s, 1, 1).OnRetry(func(policy string, attempt int, _ time.Duration, _ error) {
		seen = append(seen, policy)
	})

	calls := 0
	_ = runner.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errThrottled
		}
		return nil
	})

	assert.Equal(t, []string{"rate_limit"}, seen)
}

func TestRunner_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &recordingSleeper{}
	err := newRunner(s, 3, 3).Do(ctx, func(context.Context) error { return errFlaky })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
