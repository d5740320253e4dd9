package escrow_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"credledger/contracts/protocol"
	"credledger/internal/ledger/chain"
	"credledger/internal/ledger/chain/chaintest"
	"credledger/internal/ledger/devnet"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

const (
	cost    uint64 = 10
	funding uint64 = 100
	locator        = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"
)

var certHash = "0x" + strings.Repeat("c4", 32)

type EscrowSuite struct {
	suite.Suite
	chain  *chain.Chain
	addrs  devnet.Addresses
	owner  domain.Address
	issuer domain.Address
	seeker domain.Address
	user   domain.Address
}

func TestEscrowSuite(t *testing.T) {
	suite.Run(t, new(EscrowSuite))
}

func (s *EscrowSuite) SetupTest() {
	s.owner = chaintest.Addr("0a")
	s.issuer = chaintest.Addr("1e")
	s.seeker = chaintest.Addr("5e")
	s.user = chaintest.Addr("05")
	s.chain = chain.New()
	addrs, err := devnet.Deploy(context.Background(), s.chain, devnet.Config{Deployer: s.owner, RequestCost: cost})
	s.Require().NoError(err)
	s.addrs = addrs

	chaintest.MustSubmit(s.T(), s.chain, s.owner, addrs.Issuers, protocol.MethodAddIssuer, s.issuer)
	chaintest.MustSubmit(s.T(), s.chain, s.issuer, addrs.Certificates, protocol.MethodAddCertificate, s.user, certHash)
	chaintest.MustSubmit(s.T(), s.chain, s.owner, addrs.Token, protocol.MethodTransfer, s.seeker, funding)
}

func (s *EscrowSuite) deposit(amount uint64) {
	chaintest.MustSubmit(s.T(), s.chain, s.seeker, s.addrs.Token, protocol.MethodApprove, s.addrs.Escrow, amount)
	chaintest.MustSubmit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodIncreaseAvailableBalance, amount)
}

func (s *EscrowSuite) balances() (available, inflight uint64) {
	chaintest.MustCall(s.T(), s.chain, s.addrs.Escrow, protocol.MethodSeekerAvailableBalance, &available, s.seeker)
	chaintest.MustCall(s.T(), s.chain, s.addrs.Escrow, protocol.MethodSeekerInflightBalance, &inflight, s.seeker)
	return available, inflight
}

func (s *EscrowSuite) tokens(a domain.Address) uint64 {
	var n uint64
	chaintest.MustCall(s.T(), s.chain, s.addrs.Token, protocol.MethodBalanceOf, &n, a)
	return n
}

func (s *EscrowSuite) submit() protocol.Request {
	receipt := chaintest.MustSubmit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodSubmitRequest, s.user, certHash)
	var r protocol.Request
	s.Require().NoError(receipt.DecodeResult(&r))
	return r
}

func (s *EscrowSuite) request(id uint64) protocol.Request {
	var r protocol.Request
	chaintest.MustCall(s.T(), s.chain, s.addrs.Escrow, protocol.MethodGetRequest, &r, id)
	return r
}

func (s *EscrowSuite) TestDepositRequiresAllowance() {
	_, err := chaintest.Submit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodIncreaseAvailableBalance, uint64(1))
	s.Equal(string(dErrors.CodeInsufficientAllowance), chaintest.RevertCode(err))

	available, _ := s.balances()
	s.Zero(available)
}

func (s *EscrowSuite) TestDepositThenRefund() {
	s.deposit(funding)
	available, inflight := s.balances()
	s.Equal(funding, available)
	s.Zero(inflight)
	s.Zero(s.tokens(s.seeker))
	s.Equal(funding, s.tokens(s.addrs.Escrow))

	receipt := chaintest.MustSubmit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodRefundAvailableBalance)
	var refunded uint64
	s.Require().NoError(receipt.DecodeResult(&refunded))
	s.Equal(funding, refunded)
	s.Equal(funding, s.tokens(s.seeker))
	available, _ = s.balances()
	s.Zero(available)

	receipt = chaintest.MustSubmit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodRefundAvailableBalance)
	s.Require().NoError(receipt.DecodeResult(&refunded))
	s.Zero(refunded, "refunding an empty balance is a no-op")
}

func (s *EscrowSuite) TestSubmitMovesCostInFlight() {
	s.deposit(cost + 5)
	r := s.submit()

	s.Equal(uint64(1), r.ID)
	s.Equal(protocol.RequestInitial, r.Status)
	available, inflight := s.balances()
	s.Equal(uint64(5), available)
	s.Equal(cost, inflight)

	_, err := chaintest.Submit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodSubmitRequest, s.user, certHash)
	s.Equal(string(dErrors.CodeInsufficientBalance), chaintest.RevertCode(err))

	var ids []uint64
	chaintest.MustCall(s.T(), s.chain, s.addrs.Escrow, protocol.MethodGetSeekerRequests, &ids, s.seeker)
	s.Equal([]uint64{1}, ids)
}

func (s *EscrowSuite) TestRefundLeavesInFlightUntouched() {
	s.deposit(cost * 2)
	s.submit()

	chaintest.MustSubmit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodRefundAvailableBalance)
	available, inflight := s.balances()
	s.Zero(available)
	s.Equal(cost, inflight)
	s.Equal(funding-cost, s.tokens(s.seeker))
}

func (s *EscrowSuite) TestSubmitForUnknownCertificate() {
	s.deposit(cost)
	_, err := chaintest.Submit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodSubmitRequest, s.user, "0x"+strings.Repeat("00", 32))
	s.Equal(string(dErrors.CodeNotFound), chaintest.RevertCode(err))
}

func (s *EscrowSuite) TestApproveThenSettle() {
	s.deposit(cost)
	r := s.submit()

	chaintest.MustSubmit(s.T(), s.chain, s.user, s.addrs.Escrow, protocol.MethodUserCompleteRequest, r.ID, locator)
	r = s.request(r.ID)
	s.Equal(protocol.RequestUserCompleted, r.Status)
	s.Equal(locator, r.Locator)

	chaintest.MustSubmit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodSeekerCompleteRequest, r.ID, strings.ToUpper(certHash[2:]))
	s.Equal(protocol.RequestSeekerCompleted, s.request(r.ID).Status)

	available, inflight := s.balances()
	s.Zero(available)
	s.Zero(inflight)
	s.Equal(cost, s.tokens(s.user), "cost is paid out to the user")
}

func (s *EscrowSuite) TestHashMismatchRecordsFailure() {
	s.deposit(cost)
	r := s.submit()
	chaintest.MustSubmit(s.T(), s.chain, s.user, s.addrs.Escrow, protocol.MethodUserCompleteRequest, r.ID, locator)

	chaintest.MustSubmit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodSeekerCompleteRequest, r.ID, "0x"+strings.Repeat("ee", 32))
	s.Equal(protocol.RequestSeekerFailed, s.request(r.ID).Status)

	_, inflight := s.balances()
	s.Equal(cost, inflight, "failed settlement keeps funds in flight")
	s.Zero(s.tokens(s.user))

	_, err := chaintest.Submit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodSeekerCompleteRequest, r.ID, certHash)
	s.Equal(string(dErrors.CodeInvalidState), chaintest.RevertCode(err), "SeekerFailed is terminal")
}

func (s *EscrowSuite) TestDenyReleasesFunds() {
	s.deposit(cost)
	r := s.submit()

	_, err := chaintest.Submit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodUserDenyRequest, r.ID)
	s.Equal(string(dErrors.CodeUnauthorized), chaintest.RevertCode(err), "only the named user may deny")

	chaintest.MustSubmit(s.T(), s.chain, s.user, s.addrs.Escrow, protocol.MethodUserDenyRequest, r.ID)
	s.Equal(protocol.RequestUserDenied, s.request(r.ID).Status)
	available, inflight := s.balances()
	s.Equal(cost, available)
	s.Zero(inflight)
}

func (s *EscrowSuite) TestCancelOnlyWhileInitial() {
	s.deposit(cost * 2)
	first := s.submit()
	second := s.submit()

	chaintest.MustSubmit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodSeekerCancelRequest, first.ID)
	s.Equal(protocol.RequestSeekerCancelled, s.request(first.ID).Status)

	chaintest.MustSubmit(s.T(), s.chain, s.user, s.addrs.Escrow, protocol.MethodUserCompleteRequest, second.ID, locator)
	_, err := chaintest.Submit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodSeekerCancelRequest, second.ID)
	s.Equal(string(dErrors.CodeInvalidState), chaintest.RevertCode(err))

	available, inflight := s.balances()
	s.Equal(cost, available)
	s.Equal(cost, inflight)
}

func (s *EscrowSuite) TestApproveValidatesLocatorAndCaller() {
	s.deposit(cost)
	r := s.submit()

	_, err := chaintest.Submit(s.T(), s.chain, s.user, s.addrs.Escrow, protocol.MethodUserCompleteRequest, r.ID, "not-a-cid")
	s.Equal(string(dErrors.CodeInvalidInput), chaintest.RevertCode(err))

	_, err = chaintest.Submit(s.T(), s.chain, s.seeker, s.addrs.Escrow, protocol.MethodUserCompleteRequest, r.ID, locator)
	s.Equal(string(dErrors.CodeUnauthorized), chaintest.RevertCode(err))

	_, err = chaintest.Submit(s.T(), s.chain, s.user, s.addrs.Escrow, protocol.MethodUserCompleteRequest, uint64(42), locator)
	s.Equal(string(dErrors.CodeNotFound), chaintest.RevertCode(err))
}
