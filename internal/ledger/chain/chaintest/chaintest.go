// Package chaintest drives an in-process chain from tests.
package chaintest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"credledger/internal/ledger"
	"credledger/pkg/domain"
)

// Submit sends a transaction and returns the receipt and error unchanged.
func Submit(t testing.TB, c ledger.Client, from, to domain.Address, method string, args ...any) (*ledger.Receipt, error) {
	t.Helper()
	msg, err := ledger.NewCallMsg(from, to, method, args...)
	require.NoError(t, err)
	return c.Submit(context.Background(), msg)
}

// MustSubmit fails the test when the transaction reverts.
func MustSubmit(t testing.TB, c ledger.Client, from, to domain.Address, method string, args ...any) *ledger.Receipt {
	t.Helper()
	receipt, err := Submit(t, c, from, to, method, args...)
	require.NoError(t, err, "%s reverted", method)
	return receipt
}

// Call runs a read and decodes the result into out.
func Call(t testing.TB, c ledger.Client, to domain.Address, method string, out any, args ...any) error {
	t.Helper()
	msg, err := ledger.NewCallMsg("", to, method, args...)
	require.NoError(t, err)
	raw, err := c.Call(context.Background(), msg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// MustCall fails the test when the read reverts.
func MustCall(t testing.TB, c ledger.Client, to domain.Address, method string, out any, args ...any) {
	t.Helper()
	require.NoError(t, Call(t, c, to, method, out, args...), "%s reverted", method)
}

// RevertCode returns the revert code carried by err, or "" when err is not a revert.
func RevertCode(err error) string {
	if rev, ok := ledger.AsRevert(err); ok {
		return string(rev.Code)
	}
	return ""
}

// Addr builds a test address from a short suffix, e.g. Addr("a1").
func Addr(suffix string) domain.Address {
	const zeros = "0000000000000000000000000000000000000000"
	return domain.MustAddress("0x" + zeros[:40-len(suffix)] + suffix)
}
