package crange

import (
	"errors"

	"go.uber.org/multierr"

	"github.com/benz9527/crange/internal/xerr"
)

// Sentinel errors for the precondition violations of §7's error
// taxonomy: caller bugs detected at the Window.Replace boundary. None
// of these cross the public API as a return value — Replace panics with
// one of these (possibly multierr-combined), since they are programming
// errors, not runtime conditions, exactly as spec.md §7 prescribes.
var (
	ErrZeroSize           = errors.New("crange: interval size must be > 0")
	ErrChainNotSorted     = errors.New("crange: new_chain is not sorted by key")
	ErrChainOverlaps      = errors.New("crange: new_chain contains overlapping intervals")
	ErrChainEscapesWindow = errors.New("crange: new_chain interval escapes the window")
	ErrWindowReleased     = errors.New("crange: operation on a released window")
)

// checkChain validates the §4.6 Replace precondition that new_chain is
// pairwise disjoint, sorted by key, and fully contained in [key,
// key+size). It collects every violation found (not just the first) via
// multierr, so a caller debugging a bad fixture sees every problem at
// once instead of fixing them one crash at a time.
func checkChain(chain []*node, windowKey, windowSize uint64) error {
	var err error
	for _, n := range chain {
		if n.size == 0 {
			err = multierr.Append(err, xerr.Wrap(ErrZeroSize))
		}
		if n.key < windowKey || n.key+n.size > windowKey+windowSize {
			err = multierr.Append(err, xerr.Wrap(ErrChainEscapesWindow))
		}
	}
	for i := 1; i < len(chain); i++ {
		prev, cur := chain[i-1], chain[i]
		if prev.key >= cur.key {
			err = multierr.Append(err, xerr.Wrap(ErrChainNotSorted))
		} else if prev.key+prev.size > cur.key {
			err = multierr.Append(err, xerr.Wrap(ErrChainOverlaps))
		}
	}
	return err
}
