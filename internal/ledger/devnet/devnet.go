// Package devnet deploys the full contract suite onto an in-process chain.
package devnet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"credledger/internal/ledger/chain"
	"credledger/internal/ledger/contracts/certificates"
	"credledger/internal/ledger/contracts/escrow"
	"credledger/internal/ledger/contracts/issuers"
	"credledger/internal/ledger/contracts/pubkeys"
	"credledger/internal/ledger/contracts/token"
	"credledger/pkg/domain"
)

const (
	// DefaultSupply is the token supply minted to the deployer.
	DefaultSupply uint64 = 1_000_000_000 * 1_000_000
	// DefaultRequestCost is the escrow price of one verification request.
	DefaultRequestCost uint64 = 10 * 1_000_000
)

// Addresses locates each deployed contract.
type Addresses struct {
	PublicKeys   domain.Address
	Issuers      domain.Address
	Certificates domain.Address
	Token        domain.Address
	Escrow       domain.Address
}

type Config struct {
	Deployer    domain.Address
	Supply      uint64
	RequestCost uint64
	// Addresses overrides derived contract addresses when fields are set.
	Addresses Addresses
}

// DeriveAddresses computes the contract addresses a deployer would get from
// its first five creation nonces.
func DeriveAddresses(deployer domain.Address) Addresses {
	at := func(nonce uint64) domain.Address {
		return domain.Address(crypto.CreateAddress(common.HexToAddress(deployer.String()), nonce).Hex())
	}
	return Addresses{
		PublicKeys:   at(0),
		Issuers:      at(1),
		Certificates: at(2),
		Token:        at(3),
		Escrow:       at(4),
	}
}

func (c Config) resolve() Config {
	derived := DeriveAddresses(c.Deployer)
	fill := func(dst *domain.Address, v domain.Address) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&c.Addresses.PublicKeys, derived.PublicKeys)
	fill(&c.Addresses.Issuers, derived.Issuers)
	fill(&c.Addresses.Certificates, derived.Certificates)
	fill(&c.Addresses.Token, derived.Token)
	fill(&c.Addresses.Escrow, derived.Escrow)
	if c.Supply == 0 {
		c.Supply = DefaultSupply
	}
	if c.RequestCost == 0 {
		c.RequestCost = DefaultRequestCost
	}
	return c
}

// Deploy installs every contract with cfg.Deployer as owner and token holder.
func Deploy(ctx context.Context, ch *chain.Chain, cfg Config) (Addresses, error) {
	if cfg.Deployer == "" {
		return Addresses{}, fmt.Errorf("devnet: deployer address is required")
	}
	cfg = cfg.resolve()
	a := cfg.Addresses

	steps := []struct {
		address  domain.Address
		contract chain.Contract
	}{
		{a.PublicKeys, pubkeys.New()},
		{a.Issuers, issuers.New()},
		{a.Certificates, certificates.New(a.Issuers)},
		{a.Token, token.New(cfg.Supply)},
		{a.Escrow, escrow.New(a.Token, a.Certificates, cfg.RequestCost)},
	}
	for _, s := range steps {
		if err := ch.Deploy(ctx, s.address, cfg.Deployer, s.contract); err != nil {
			return Addresses{}, fmt.Errorf("devnet: %w", err)
		}
	}
	return a, nil
}

// Net is a chain with the full contract suite deployed. The gateway embeds
// one when no remote ledger is configured.
type Net struct {
	Chain     *chain.Chain
	Addresses Addresses
	Deployer  domain.Address
}

func NewNet(ctx context.Context, cfg Config, opts ...chain.Option) (*Net, error) {
	c := chain.New(opts...)
	addrs, err := Deploy(ctx, c, cfg)
	if err != nil {
		return nil, err
	}
	return &Net{Chain: c, Addresses: addrs, Deployer: cfg.Deployer}, nil
}
