// Package ledger tracks per-venue USD cash and asset holdings. It is the only
// mutable state in the hedging core; all amounts are enforced non-negative.
package ledger

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/hedger/internal/domain"
)

type account struct {
	cash     decimal.Decimal
	holdings map[string]decimal.Decimal
}

// Ledger holds balances for a fixed set of venues. The venue set is sealed at
// construction; the asset set grows as trades occur. Operations are
// serialized with a mutex; cycles never overlap, so a single-writer
// discipline is sufficient.
type Ledger struct {
	mu       sync.Mutex
	accounts map[domain.Venue]*account
}

// New creates a ledger with zero balances for the given venues.
func New(venues ...domain.Venue) (*Ledger, error) {
	if len(venues) == 0 {
		return nil, errors.New("ledger requires at least one venue")
	}

	accounts := make(map[domain.Venue]*account, len(venues))
	for _, v := range venues {
		accounts[v] = &account{
			cash:     decimal.Zero,
			holdings: make(map[string]decimal.Decimal),
		}
	}
	return &Ledger{accounts: accounts}, nil
}

// FromSnapshot restores a ledger from a persisted snapshot.
func FromSnapshot(snap domain.LedgerSnapshot) (*Ledger, error) {
	if len(snap.Venues) == 0 {
		return nil, errors.New("snapshot contains no venues")
	}

	accounts := make(map[domain.Venue]*account, len(snap.Venues))
	for v, vb := range snap.Venues {
		if vb.CashUSD.IsNegative() {
			return nil, errors.Wrapf(domain.ErrInvalidAmount, "negative cash %s for venue %s", vb.CashUSD.String(), v)
		}
		holdings := make(map[string]decimal.Decimal, len(vb.Holdings))
		for asset, amount := range vb.Holdings {
			if amount.IsNegative() {
				return nil, errors.Wrapf(domain.ErrInvalidAmount, "negative holding %s of %s for venue %s", amount.String(), asset, v)
			}
			holdings[asset] = amount
		}
		accounts[v] = &account{cash: vb.CashUSD, holdings: holdings}
	}
	return &Ledger{accounts: accounts}, nil
}

func (l *Ledger) account(venue domain.Venue) (*account, error) {
	acc, ok := l.accounts[venue]
	if !ok {
		return nil, errors.Errorf("unknown venue: %s", venue)
	}
	return acc, nil
}

// DebitCash decrements the venue's cash. Fails with domain.ErrInsufficientFunds
// when the amount exceeds the balance; negative amounts violate the contract.
func (l *Ledger) DebitCash(venue domain.Venue, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.account(venue)
	if err != nil {
		return err
	}
	if amount.IsNegative() {
		return errors.Wrapf(domain.ErrInvalidAmount, "debit of %s from %s", amount.String(), venue)
	}
	if amount.GreaterThan(acc.cash) {
		return errors.Wrapf(domain.ErrInsufficientFunds, "debit %s exceeds %s cash on %s", amount.String(), acc.cash.String(), venue)
	}

	acc.cash = acc.cash.Sub(amount)
	return nil
}

// CreditCash increments the venue's cash. Negative amounts violate the contract.
func (l *Ledger) CreditCash(venue domain.Venue, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.account(venue)
	if err != nil {
		return err
	}
	if amount.IsNegative() {
		return errors.Wrapf(domain.ErrInvalidAmount, "credit of %s to %s", amount.String(), venue)
	}

	acc.cash = acc.cash.Add(amount)
	return nil
}

// AdjustHolding adds delta (possibly negative) to the venue's asset holding.
// Fails with domain.ErrInsufficientHolding if the result would be negative.
func (l *Ledger) AdjustHolding(venue domain.Venue, asset string, delta decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.account(venue)
	if err != nil {
		return err
	}

	next := acc.holdings[asset].Add(delta)
	if next.IsNegative() {
		return errors.Wrapf(domain.ErrInsufficientHolding, "%s of %s on %s would go to %s",
			delta.String(), asset, venue, next.String())
	}

	acc.holdings[asset] = next
	return nil
}

// CashUSD returns the venue's current cash balance.
func (l *Ledger) CashUSD(venue domain.Venue) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[venue]
	if !ok {
		return decimal.Zero
	}
	return acc.cash
}

// Holding returns the venue's holding of the asset, zero if absent.
func (l *Ledger) Holding(venue domain.Venue, asset string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[venue]
	if !ok {
		return decimal.Zero
	}
	return acc.holdings[asset]
}

// Venues returns the fixed venue set.
func (l *Ledger) Venues() []domain.Venue {
	venues := make([]domain.Venue, 0, len(l.accounts))
	for v := range l.accounts {
		venues = append(venues, v)
	}
	return venues
}

// Snapshot returns an immutable deep copy of all balances for persistence.
func (l *Ledger) Snapshot() domain.LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	venues := make(map[domain.Venue]domain.VenueBalance, len(l.accounts))
	for v, acc := range l.accounts {
		holdings := make(map[string]decimal.Decimal, len(acc.holdings))
		for asset, amount := range acc.holdings {
			holdings[asset] = amount
		}
		venues[v] = domain.VenueBalance{CashUSD: acc.cash, Holdings: holdings}
	}

	return domain.LedgerSnapshot{Timestamp: time.Now().UTC(), Venues: venues}
}
