// Package retry implementa uma política de retentativa componível: cada Policy
// tem seu próprio contador, seu classificador de falhas e sua função de espera.
// O mesmo Runner serve para retentativas genéricas e para throttling.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Backoff calcula a espera antes da k-ésima retentativa (k começa em 1).
type Backoff func(attempt int, err error) time.Duration

// Sleeper espera d ou retorna o erro do contexto; testes injetam uma versão que não dorme.
type Sleeper func(ctx context.Context, d time.Duration) error

type Policy struct {
	Name       string
	MaxRetries int
	Classify   func(err error) bool
	Backoff    Backoff
}

// ExhaustedError indica que a política que classificou a falha esgotou suas retentativas.
type ExhaustedError struct {
	Policy   string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry %s: esgotado após %d tentativas: %v", e.Policy, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Runner executa uma operação aplicando a primeira política que reconhece o erro.
type Runner struct {
	policies []Policy
	sleep    Sleeper
	onRetry  func(policy string, attempt int, wait time.Duration, err error)
}

func New(sleep Sleeper, policies ...Policy) *Runner {
	if sleep == nil {
		sleep = Sleep
	}
	return &Runner{policies: policies, sleep: sleep}
}

// OnRetry registra um callback chamado antes de cada espera.
func (r *Runner) OnRetry(fn func(policy string, attempt int, wait time.Duration, err error)) *Runner {
	r.onRetry = fn
	return r
}

// Do chama fn até sucesso, erro não classificado ou esgotamento de alguma política.
// O total de chamadas é no máximo 1 + soma de MaxRetries das políticas.
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := make([]int, len(r.policies))

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		idx := r.match(err)
		if idx < 0 {
			return err
		}

		policy := r.policies[idx]
		if attempts[idx] >= policy.MaxRetries {
			return &ExhaustedError{Policy: policy.Name, Attempts: attempts[idx] + 1, Err: err}
		}

		attempts[idx]++
		wait := time.Duration(0)
		if policy.Backoff != nil {
			wait = policy.Backoff(attempts[idx], err)
		}

		if r.onRetry != nil {
			r.onRetry(policy.Name, attempts[idx], wait, err)
		}

		if sleepErr := r.sleep(ctx, wait); sleepErr != nil {
			return sleepErr
		}
	}
}

func (r *Runner) match(err error) int {
	for i, p := range r.policies {
		if p.Classify != nil && p.Classify(err) {
			return i
		}
	}
	return -1
}

// Sleep espera d respeitando o cancelamento do contexto.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fixed espera sempre o mesmo intervalo.
func Fixed(d time.Duration) Backoff {
	return func(int, error) time.Duration { return d }
}

// Linear espera base × k.
func Linear(base time.Duration) Backoff {
	return func(attempt int, _ error) time.Duration {
		return base * time.Duration(attempt)
	}
}

// HintOr usa a dica de espera do erro quando existir, senão o fallback.
func HintOr(hint func(err error) (time.Duration, bool), fallback Backoff) Backoff {
	return func(attempt int, err error) time.Duration {
		if d, ok := hint(err); ok {
			return d
		}
		return fallback(attempt, err)
	}
}
