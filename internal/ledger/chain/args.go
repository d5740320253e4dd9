package chain

import (
	"encoding/json"

	"credledger/internal/ledger"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/hexcodec"
)

// Args decodes positional call arguments. Decode failures revert with
// CodeInvalidInput.
type Args []json.RawMessage

func (a Args) decode(i int, out any) error {
	if i >= len(a) {
		return ledger.Revert(dErrors.CodeInvalidInput, "missing argument %d", i)
	}
	if err := json.Unmarshal(a[i], out); err != nil {
		return ledger.Revert(dErrors.CodeInvalidInput, "argument %d: %v", i, err)
	}
	return nil
}

func (a Args) String(i int) (string, error) {
	var s string
	err := a.decode(i, &s)
	return s, err
}

func (a Args) Uint64(i int) (uint64, error) {
	var n uint64
	err := a.decode(i, &n)
	return n, err
}

func (a Args) Bool(i int) (bool, error) {
	var b bool
	err := a.decode(i, &b)
	return b, err
}

func (a Args) Address(i int) (domain.Address, error) {
	s, err := a.String(i)
	if err != nil {
		return "", err
	}
	addr, err := domain.ParseAddress(s)
	if err != nil {
		return "", ledger.Revert(dErrors.CodeInvalidInput, "argument %d: %v", i, err)
	}
	return addr, nil
}

// Hash decodes a 32-byte hash in canonical form.
func (a Args) Hash(i int) (string, error) {
	s, err := a.String(i)
	if err != nil {
		return "", err
	}
	h, err := hexcodec.Bytes32(s)
	if err != nil {
		return "", ledger.Revert(dErrors.CodeInvalidInput, "argument %d: %v", i, err)
	}
	return h, nil
}

// Hex decodes a non-empty hex value in canonical form.
func (a Args) Hex(i int) (string, error) {
	s, err := a.String(i)
	if err != nil {
		return "", err
	}
	h, err := hexcodec.Canonical(s)
	if err != nil {
		return "", ledger.Revert(dErrors.CodeInvalidInput, "argument %d: %v", i, err)
	}
	return h, nil
}
