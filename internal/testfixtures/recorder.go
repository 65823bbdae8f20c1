package testfixtures

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/example/colgit/internal/persistence/gateway"
)

// RecordingGateway decorates a gateway and records every statement passed
// to ExecContext, including those issued inside transactions.
type RecordingGateway struct {
	gateway.Gateway

	mu         sync.Mutex
	statements []string
	txCount    int
}

// NewRecordingGateway wraps inner.
func NewRecordingGateway(inner gateway.Gateway) *RecordingGateway {
	return &RecordingGateway{Gateway: inner}
}

// ExecContext records query and delegates to the wrapped gateway.
func (r *RecordingGateway) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	r.record(query)
	return r.Gateway.ExecContext(ctx, query, args...)
}

// WithinTx delegates to the wrapped gateway and keeps recording inside the
// transaction.
func (r *RecordingGateway) WithinTx(ctx context.Context, fn func(gateway.Gateway) error) error {
	r.mu.Lock()
	r.txCount++
	r.mu.Unlock()
	return r.Gateway.WithinTx(ctx, func(tx gateway.Gateway) error {
		return fn(&recordingTx{Gateway: tx, parent: r})
	})
}

// Statements returns a copy of the recorded statements.
func (r *RecordingGateway) Statements() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statements...)
}

// Count returns how many recorded statements start with prefix, ignoring case.
func (r *RecordingGateway) Count(prefix string) int {
	prefix = strings.ToUpper(prefix)
	n := 0
	for _, stmt := range r.Statements() {
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stmt)), prefix) {
			n++
		}
	}
	return n
}

// Transactions returns how many transactions were started.
func (r *RecordingGateway) Transactions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.txCount
}

// Reset clears the recorded history.
func (r *RecordingGateway) Reset() {
	r.mu.Lock()
	r.statements = nil
	r.txCount = 0
	r.mu.Unlock()
}

func (r *RecordingGateway) record(query string) {
	r.mu.Lock()
	r.statements = append(r.statements, query)
	r.mu.Unlock()
}

type recordingTx struct {
	gateway.Gateway
	parent *RecordingGateway
}

func (t *recordingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	t.parent.record(query)
	return t.Gateway.ExecContext(ctx, query, args...)
}

func (t *recordingTx) WithinTx(_ context.Context, fn func(gateway.Gateway) error) error {
	return fn(t)
}
