package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"credledger/contracts/protocol"
	"credledger/internal/escrow/service"
	"credledger/internal/ledger"
	"credledger/internal/ledger/chain/chaintest"
	"credledger/internal/ledger/devnet"
	tokensvc "credledger/internal/token/service"
	"credledger/pkg/hexcodec"
	"credledger/pkg/testutil"
)

var (
	addrs    = testutil.TestAddresses
	certHash = testutil.CertHash("e5")
)

type HandlerSuite struct {
	suite.Suite
	net    *devnet.Net
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	net, err := devnet.NewNet(context.Background(), devnet.Config{Deployer: addrs.Owner, RequestCost: 10})
	s.Require().NoError(err)
	s.net = net
	t := s.T()
	chaintest.MustSubmit(t, net.Chain, addrs.Owner, net.Addresses.Issuers, protocol.MethodAddIssuer, addrs.Issuer)
	chaintest.MustSubmit(t, net.Chain, addrs.Issuer, net.Addresses.Certificates, protocol.MethodAddCertificate, addrs.User, certHash)
	chaintest.MustSubmit(t, net.Chain, addrs.Owner, net.Addresses.Token, protocol.MethodTransfer, addrs.Seeker, uint64(50))

	tokens := tokensvc.New(ledger.NewBinding(net.Chain, net.Addresses.Token, protocol.PathToken))
	svc := service.New(ledger.NewBinding(net.Chain, net.Addresses.Escrow, protocol.Escrow), tokens, service.WithLogger(logger))
	r := chi.NewRouter()
	New(svc, logger).Register(r, testutil.HeaderCaller)
	s.router = r
}

func (s *HandlerSuite) fund(amount uint64) {
	chaintest.MustSubmit(s.T(), s.net.Chain, addrs.Seeker, s.net.Addresses.Token, protocol.MethodApprove, s.net.Addresses.Escrow, amount)
	rec := testutil.Do(s.T(), s.router, http.MethodPost, "/v1/escrow/deposit", addrs.Seeker, map[string]any{"amount": amount})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
}

func (s *HandlerSuite) balance() BalanceResponse {
	rec := testutil.Do(s.T(), s.router, http.MethodGet, "/v1/escrow/"+addrs.Seeker.String()+"/balance", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	return testutil.DecodeBody[BalanceResponse](s.T(), rec)
}

func (s *HandlerSuite) submit() *RequestResponse {
	rec := testutil.Do(s.T(), s.router, http.MethodPost, "/v1/escrow/requests", addrs.Seeker,
		map[string]any{"user": addrs.User.String(), "hash": certHash.String()})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return testutil.DecodeBody[RequestMutationResponse](s.T(), rec).Request
}

func (s *HandlerSuite) TestCost() {
	rec := testutil.Do(s.T(), s.router, http.MethodGet, "/v1/escrow/cost", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(uint64(10), testutil.DecodeBody[CostResponse](s.T(), rec).RequestCost)
}

func (s *HandlerSuite) TestDepositWithoutAllowance() {
	rec := testutil.Do(s.T(), s.router, http.MethodPost, "/v1/escrow/deposit", addrs.Seeker, map[string]any{"amount": 5})
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Contains(rec.Body.String(), "insufficient_allowance")
}

func (s *HandlerSuite) TestDepositRequiresCaller() {
	rec := testutil.Do(s.T(), s.router, http.MethodPost, "/v1/escrow/deposit", "", map[string]any{"amount": 5})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestFullRequestLifecycle() {
	s.fund(30)
	req := s.submit()
	s.Equal("initial", req.Status)
	s.Equal(BalanceResponse{Seeker: addrs.Seeker.String(), Available: 20, Inflight: 10}, s.balance())

	path := "/v1/escrow/requests/" + itoa(req.ID)
	rec := testutil.Do(s.T(), s.router, http.MethodPost, path+"/approve", addrs.User, map[string]any{"locator": testutil.Locator})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("user_completed", testutil.DecodeBody[RequestMutationResponse](s.T(), rec).Request.Status)

	rec = testutil.Do(s.T(), s.router, http.MethodPost, path+"/complete", addrs.Seeker, map[string]any{"retrieved_hash": certHash.String()})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	done := testutil.DecodeBody[RequestMutationResponse](s.T(), rec).Request
	s.Equal("seeker_completed", done.Status)
	s.True(done.Terminal)
	s.Equal(testutil.Locator, done.Locator)

	s.Equal(uint64(0), s.balance().Inflight)

	rec = testutil.Do(s.T(), s.router, http.MethodGet, "/v1/escrow/"+addrs.Seeker.String()+"/requests", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(testutil.DecodeBody[RequestListResponse](s.T(), rec).Requests, 1)
}

func (s *HandlerSuite) TestSubmitCanonicalizesUser() {
	s.fund(10)
	rec := testutil.Do(s.T(), s.router, http.MethodPost, "/v1/escrow/requests", addrs.Seeker,
		map[string]any{"user": hexcodec.Strip0x(addrs.User.String()), "hash": certHash.String()})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	req := testutil.DecodeBody[RequestMutationResponse](s.T(), rec).Request
	s.Equal(addrs.User.String(), req.User)

	rec = testutil.Do(s.T(), s.router, http.MethodPost, "/v1/escrow/requests/"+itoa(req.ID)+"/approve", addrs.User,
		map[string]any{"locator": testutil.Locator})
	s.Equal(http.StatusOK, rec.Code, rec.Body.String())
}

func (s *HandlerSuite) TestDenyAndRefund() {
	s.fund(10)
	req := s.submit()
	rec := testutil.Do(s.T(), s.router, http.MethodPost, "/v1/escrow/requests/"+itoa(req.ID)+"/deny", addrs.User, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = testutil.Do(s.T(), s.router, http.MethodPost, "/v1/escrow/refund", addrs.Seeker, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(uint64(10), testutil.DecodeBody[RefundResponse](s.T(), rec).Refunded)
	s.Equal(uint64(0), s.balance().Available)
}

func (s *HandlerSuite) TestWrongPartyIsForbidden() {
	s.fund(10)
	req := s.submit()
	rec := testutil.Do(s.T(), s.router, http.MethodPost, "/v1/escrow/requests/"+itoa(req.ID)+"/cancel", addrs.User, nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HandlerSuite) TestCompleteBeforeApprovalIsInvalidState() {
	s.fund(10)
	req := s.submit()
	rec := testutil.Do(s.T(), s.router, http.MethodPost, "/v1/escrow/requests/"+itoa(req.ID)+"/complete", addrs.Seeker,
		map[string]any{"retrieved_hash": certHash.String()})
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Contains(rec.Body.String(), "invalid_state")
}

func (s *HandlerSuite) TestValidation() {
	rec := testutil.Do(s.T(), s.router, http.MethodPost, "/v1/escrow/requests/1/approve", addrs.User, map[string]any{"locator": "not-a-cid"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "locator must be a content identifier")

	rec = testutil.Do(s.T(), s.router, http.MethodGet, "/v1/escrow/requests/zero", "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = testutil.Do(s.T(), s.router, http.MethodGet, "/v1/escrow/requests/7", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func itoa(n uint64) string { return strconv.FormatUint(n, 10) }
