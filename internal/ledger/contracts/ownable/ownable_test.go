package ownable_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credledger/contracts/protocol"
	"credledger/internal/ledger/chain"
	"credledger/internal/ledger/chain/chaintest"
	"credledger/internal/ledger/devnet"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

func TestSetDeputy(t *testing.T) {
	owner, deputy, stranger := chaintest.Addr("0a"), chaintest.Addr("0b"), chaintest.Addr("0c")
	c := chain.New()
	addrs, err := devnet.Deploy(context.Background(), c, devnet.Config{Deployer: owner})
	require.NoError(t, err)

	var got domain.Address
	chaintest.MustCall(t, c, addrs.Issuers, protocol.MethodOwner, &got)
	assert.True(t, got.Equal(owner))
	chaintest.MustCall(t, c, addrs.Issuers, protocol.MethodDeputy, &got)
	assert.Empty(t, got)

	_, err = chaintest.Submit(t, c, stranger, addrs.Issuers, protocol.MethodSetDeputy, deputy)
	assert.Equal(t, string(dErrors.CodeUnauthorized), chaintest.RevertCode(err))

	chaintest.MustSubmit(t, c, owner, addrs.Issuers, protocol.MethodSetDeputy, deputy)
	chaintest.MustCall(t, c, addrs.Issuers, protocol.MethodDeputy, &got)
	assert.True(t, got.Equal(deputy))

	_, err = chaintest.Submit(t, c, deputy, addrs.Issuers, protocol.MethodSetDeputy, stranger)
	assert.Equal(t, string(dErrors.CodeUnauthorized), chaintest.RevertCode(err), "deputy cannot appoint a deputy")
}
