package devnet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credledger/contracts/protocol"
	"credledger/pkg/domain"
)

func TestDeriveAddressesIsDeterministic(t *testing.T) {
	deployer := domain.MustAddress("0x00000000000000000000000000000000000000A0")

	a := DeriveAddresses(deployer)
	b := DeriveAddresses(domain.Address(deployer.Key()))
	assert.Equal(t, a, b)

	seen := map[string]bool{}
	for _, addr := range []domain.Address{a.PublicKeys, a.Issuers, a.Certificates, a.Token, a.Escrow} {
		assert.False(t, seen[addr.Key()], "addresses must be distinct")
		seen[addr.Key()] = true
	}
}

func TestNewNetDeploysEveryContract(t *testing.T) {
	ctx := context.Background()
	deployer := domain.MustAddress("0x00000000000000000000000000000000000000A0")
	net, err := NewNet(ctx, Config{Deployer: deployer})
	require.NoError(t, err)

	want := map[domain.Address]string{
		net.Addresses.PublicKeys:   protocol.PublicKeys,
		net.Addresses.Issuers:      protocol.Issuers,
		net.Addresses.Certificates: protocol.Certificates,
		net.Addresses.Token:        protocol.PathToken,
		net.Addresses.Escrow:       protocol.Escrow,
	}
	for addr, name := range want {
		abi, err := net.Chain.Describe(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, name, abi.Name)
	}
	assert.Zero(t, net.Chain.Height(), "deployment is genesis state")
}

func TestDeployRequiresDeployer(t *testing.T) {
	_, err := NewNet(context.Background(), Config{})
	assert.Error(t, err)
}

func TestDeployRejectsOccupiedAddress(t *testing.T) {
	ctx := context.Background()
	deployer := domain.MustAddress("0x00000000000000000000000000000000000000A0")
	net, err := NewNet(ctx, Config{Deployer: deployer})
	require.NoError(t, err)

	_, err = Deploy(ctx, net.Chain, Config{Deployer: deployer})
	assert.Error(t, err)
}
