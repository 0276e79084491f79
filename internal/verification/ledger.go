package verification

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Config tunes the ledger. Zero values fall back to 4 digits, 5 minutes and 30 minutes.
type Config struct {
	Policy          Policy
	CodeLength      int
	TTL             time.Duration
	ConfirmedWindow time.Duration
}

// Ledger issues, verifies and redeems codes.
type Ledger struct {
	store      Store
	dispatcher Dispatcher
	log        *slog.Logger
	cfg        Config

	now      func() time.Time
	generate func(length int) (string, error)
}

func NewLedger(store Store, dispatcher Dispatcher, log *slog.Logger, cfg Config) *Ledger {
	if cfg.Policy == "" {
		cfg.Policy = PolicyExtend
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 4
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.ConfirmedWindow <= 0 {
		cfg.ConfirmedWindow = 30 * time.Minute
	}
	return &Ledger{
		store:      store,
		dispatcher: dispatcher,
		log:        log,
		cfg:        cfg,
		now:        time.Now,
		generate:   numericCode,
	}
}

// Policy reports the configured verification policy.
func (l *Ledger) Policy() Policy { return l.cfg.Policy }

// Issue replaces any outstanding code for scope and purpose with a new one and hands it
// to the dispatcher. Delivery failures are logged and do not fail Issue.
func (l *Ledger) Issue(ctx context.Context, scope Scope, purpose Purpose, destination string) (string, error) {
	value, err := l.generate(l.cfg.CodeLength)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate code id: %w", err)
	}
	now := l.now()
	c := &Code{
		ID:        id.String(),
		Scope:     scope,
		Purpose:   purpose,
		Value:     value,
		ExpiresAt: now.Add(l.cfg.TTL),
		CreatedAt: now,
	}
	if err := l.store.Replace(ctx, c); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}

	if l.dispatcher != nil {
		d := Delivery{Destination: destination, Purpose: purpose, Code: value, ExpiresIn: l.cfg.TTL}
		if err := l.dispatcher.SendCode(ctx, d); err != nil {
			l.log.Warn("verification code dispatch failed", "purpose", purpose, "scope", scope, "error", err)
		}
	}
	return value, nil
}

// Verify checks value against the live code for scope and purpose.
//
// Under PolicyExtend an already used code still verifies until its extended expiry, and
// the first successful verification marks it used and moves the expiry to the confirmed
// window. Later verifications do not move it again. Under PolicyConsume only unused
// codes verify and nothing is mutated.
func (l *Ledger) Verify(ctx context.Context, scope Scope, purpose Purpose, value string) (*Code, error) {
	if value == "" {
		return nil, ErrInvalidOrExpired
	}
	now := l.now()
	extend := l.cfg.Policy == PolicyExtend

	c, err := l.store.Find(ctx, scope, purpose, value, extend, now)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrInvalidOrExpired
	}
	if !extend || c.Used {
		return c, nil
	}

	expiresAt := now.Add(l.cfg.ConfirmedWindow)
	updated, err := l.store.MarkUsed(ctx, c.ID, expiresAt, now)
	if err != nil {
		return nil, fmt.Errorf("mark code used: %w", err)
	}
	c.Used = true
	if updated {
		c.ExpiresAt = expiresAt
	}
	return c, nil
}

// Redeem removes the live code matching value and returns it. Call it right before
// applying the action the code gates: of any number of concurrent redeems only one
// succeeds, the rest get ErrInvalidOrExpired. A code confirmed under PolicyExtend still
// redeems until its extended expiry.
func (l *Ledger) Redeem(ctx context.Context, scope Scope, purpose Purpose, value string) (*Code, error) {
	if value == "" {
		return nil, ErrInvalidOrExpired
	}
	c, err := l.store.Take(ctx, scope, purpose, value, l.cfg.Policy == PolicyExtend, l.now())
	if err != nil {
		return nil, fmt.Errorf("redeem code: %w", err)
	}
	if c == nil {
		return nil, ErrInvalidOrExpired
	}
	return c, nil
}

func numericCode(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
