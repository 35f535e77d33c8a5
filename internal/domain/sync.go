package domain

import (
	"errors"
	"fmt"
	"time"
)

type SyncMode string

const (
	SyncModeInitial SyncMode = "initial"
	SyncModeAppend  SyncMode = "append"
)

// DateWindow é um intervalo de dias fechado [Since, Until].
type DateWindow struct {
	Since time.Time
	Until time.Time
}

func NewDateWindow(since, until time.Time) DateWindow {
	return DateWindow{Since: StartOfDay(since), Until: StartOfDay(until)}
}

func (w DateWindow) Contains(t time.Time) bool {
	d := StartOfDay(t)
	return !d.Before(w.Since) && !d.After(w.Until)
}

func (w DateWindow) Days() int {
	return int(w.Until.Sub(w.Since).Hours()/24) + 1
}

func (w DateWindow) String() string {
	return fmt.Sprintf("%s..%s", w.Since.Format(time.DateOnly), w.Until.Format(time.DateOnly))
}

// StartOfDay devolve o dia civil de t (no fuso de t) como meia-noite UTC,
// a mesma representação das datas YYYY-MM-DD vindas do Meta e do banco.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type SyncState struct {
	AccountID           string     `json:"account_id"`
	LastSyncAt          *time.Time `json:"last_sync_at"`
	InitialSyncComplete bool       `json:"initial_sync_complete"`
	LastRunID           string     `json:"last_run_id"`
	UpdatedAt           time.Time  `json:"updated_at"`
	// InProgress vem do lock da conta no processo, não é persistido.
	InProgress bool `json:"in_progress"`
}

type SyncRequest struct {
	UserID        int
	AdAccountID   string
	ForceFullSync bool
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type SyncResponse struct {
	Message            string    `json:"message"`
	Count              int       `json:"count"`
	SyncType           SyncMode  `json:"syncType"`
	DateRange          DateRange `json:"dateRange"`
	AdsWithActivity    int       `json:"adsWithActivity"`
	AdsWithoutActivity int       `json:"adsWithoutActivity"`
	RunID              string    `json:"runId"`
}

type UpstreamErrorKind string

const (
	UpstreamRateLimited  UpstreamErrorKind = "rate_limited"
	UpstreamTokenExpired UpstreamErrorKind = "token_expired"
	UpstreamTransient    UpstreamErrorKind = "transient"
	// UpstreamIncomplete: a resposta não cobre todo o conjunto pedido (limite de
	// páginas ou linhas inválidas). Retentar não resolve.
	UpstreamIncomplete UpstreamErrorKind = "incomplete"
)

// UpstreamError é como o integrador reporta falhas já classificadas da API de anúncios.
type UpstreamError struct {
	Kind       UpstreamErrorKind
	Collection string
	RetryAfter time.Duration
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Collection, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// AsUpstreamError extrai um UpstreamError da cadeia de erros.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream, true
	}
	return nil, false
}
