package rpc_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"credledger/contracts/protocol"
	"credledger/internal/ledger"
	"credledger/internal/ledger/chain"
	"credledger/internal/ledger/chain/chaintest"
	"credledger/internal/ledger/devnet"
	"credledger/internal/ledger/rpc"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/platform/circuit"
)

type RPCSuite struct {
	suite.Suite
	server   *httptest.Server
	client   *rpc.Client
	addrs    devnet.Addresses
	deployer domain.Address
}

func TestRPCSuite(t *testing.T) {
	suite.Run(t, new(RPCSuite))
}

func (s *RPCSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.deployer = chaintest.Addr("de")
	c := chain.New(chain.WithLogger(logger))
	addrs, err := devnet.Deploy(context.Background(), c, devnet.Config{Deployer: s.deployer, Supply: 1000})
	s.Require().NoError(err)
	s.addrs = addrs

	s.server = httptest.NewServer(rpc.NewServer(c, rpc.WithServerLogger(logger)).Router())
	s.client = rpc.NewClient(s.server.URL, time.Second, rpc.WithClientLogger(logger))
}

func (s *RPCSuite) TearDownTest() {
	s.server.Close()
}

func (s *RPCSuite) TestDescribe() {
	abi, err := s.client.Describe(context.Background(), s.addrs.Token)
	s.Require().NoError(err)
	s.Equal(protocol.PathToken, abi.Name)
	s.True(abi.Methods[protocol.MethodTransfer].Mutating)
	s.False(abi.Methods[protocol.MethodBalanceOf].Mutating)
}

func (s *RPCSuite) TestDescribeUnknownContract() {
	_, err := s.client.Describe(context.Background(), chaintest.Addr("ff"))
	s.Equal(string(dErrors.CodeNotFound), chaintest.RevertCode(err))
}

func (s *RPCSuite) TestSubmitAndCall() {
	to := chaintest.Addr("b0")
	receipt := chaintest.MustSubmit(s.T(), s.client, s.deployer, s.addrs.Token, protocol.MethodTransfer, to, uint64(40))
	s.Equal(uint64(1), receipt.Block)
	s.Equal(ledger.ReceiptStatusSuccessful, receipt.Status)
	s.NotEmpty(receipt.TxHash)
	s.Require().Len(receipt.Events, 1)
	s.Equal("Transfer", receipt.Events[0].Name)

	var balance uint64
	chaintest.MustCall(s.T(), s.client, s.addrs.Token, protocol.MethodBalanceOf, &balance, to)
	s.Equal(uint64(40), balance)
}

func (s *RPCSuite) TestRevertKeepsKind() {
	_, err := chaintest.Submit(s.T(), s.client, chaintest.Addr("b0"), s.addrs.Token, protocol.MethodTransfer, s.deployer, uint64(1))
	s.Equal(string(dErrors.CodeInsufficientBalance), chaintest.RevertCode(err))
}

func (s *RPCSuite) TestBindingOverRPC() {
	binding := ledger.NewBinding(s.client, s.addrs.Issuers, protocol.Issuers)

	_, err := binding.Submit(context.Background(), chaintest.Addr("b0"), protocol.MethodAddIssuer, chaintest.Addr("1e"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Contains(err.Error(), "not allowed to add an issuer on the Issuers contract")

	var owner domain.Address
	s.Require().NoError(binding.Call(context.Background(), protocol.MethodOwner, &owner))
	s.True(owner.Equal(s.deployer))
}

func (s *RPCSuite) TestRejectsMalformedMessages() {
	resp, err := http.Post(s.server.URL+rpc.PathSubmit, "application/json", strings.NewReader(`{"to":"nope","method":"transfer"}`))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal(string(dErrors.CodeBadRequest), body["code"])
}

func TestBreakerTripsOnTransportFailuresOnly(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusInternalServerError)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		code := int(status.Load())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if code == http.StatusUnprocessableEntity {
			_, _ = w.Write([]byte(`{"code":"insufficient_balance","reason":"short"}`))
		}
	}))
	defer srv.Close()

	breaker := circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	client := rpc.NewClient(srv.URL, time.Second,
		rpc.WithBreaker(breaker),
		rpc.WithClientLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	msg := ledger.CallMsg{To: chaintest.Addr("01"), Method: protocol.MethodBalanceOf}

	status.Store(http.StatusUnprocessableEntity)
	for range 3 {
		_, err := client.Call(context.Background(), msg)
		if rev, ok := ledger.AsRevert(err); !ok || rev.Code != dErrors.CodeInsufficientBalance {
			t.Fatalf("expected revert, got %v", err)
		}
	}
	if breaker.IsOpen() {
		t.Fatal("reverts must not open the breaker")
	}

	status.Store(http.StatusInternalServerError)
	for range 2 {
		if _, err := client.Call(context.Background(), msg); err == nil {
			t.Fatal("expected transport failure")
		}
	}
	if !breaker.IsOpen() {
		t.Fatal("breaker should open after repeated 500s")
	}

	before := hits.Load()
	_, err := client.Call(context.Background(), msg)
	if !dErrors.HasCode(err, dErrors.CodeUnavailable) {
		t.Fatalf("expected unavailable from open breaker, got %v", err)
	}
	if hits.Load() != before {
		t.Fatal("open breaker must not reach the server")
	}
}
