package syncing

import "sync"

// AccountLocks garante no máximo uma sincronização em andamento por conta no processo.
type AccountLocks struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewAccountLocks() *AccountLocks {
	return &AccountLocks{active: make(map[string]struct{})}
}

// TryAcquire não bloqueia: devolve false se a conta já está sincronizando.
func (l *AccountLocks) TryAcquire(accountID string) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.active[accountID]; busy {
		return nil, false
	}
	l.active[accountID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.active, accountID)
			l.mu.Unlock()
		})
	}, true
}

func (l *AccountLocks) InProgress(accountID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.active[accountID]
	return busy
}
