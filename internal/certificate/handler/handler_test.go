package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"credledger/contracts/protocol"
	"credledger/internal/certificate/service"
	"credledger/internal/ledger"
	"credledger/internal/ledger/chain/chaintest"
	"credledger/internal/ledger/devnet"
	"credledger/pkg/testutil"
)

var (
	addrs = testutil.TestAddresses
	hashA = testutil.CertHash("aa")
	hashB = testutil.CertHash("bb")
)

type HandlerSuite struct {
	suite.Suite
	router http.Handler
	base   string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	net, err := devnet.NewNet(context.Background(), devnet.Config{Deployer: addrs.Owner})
	s.Require().NoError(err)
	chaintest.MustSubmit(s.T(), net.Chain, addrs.Owner, net.Addresses.Issuers, protocol.MethodAddIssuer, addrs.Issuer)

	svc := service.New(ledger.NewBinding(net.Chain, net.Addresses.Certificates, protocol.Certificates),
		service.WithLogger(logger))
	r := chi.NewRouter()
	New(svc, logger).Register(r, testutil.HeaderCaller)
	s.router = r
	s.base = "/v1/users/" + addrs.User.String() + "/certificates"
}

func (s *HandlerSuite) add(hash string) *CertificateMutationResponse {
	rec := testutil.Do(s.T(), s.router, http.MethodPost, s.base+"/", addrs.Issuer, map[string]string{"hash": hash})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	resp := testutil.DecodeBody[CertificateMutationResponse](s.T(), rec)
	return &resp
}

func (s *HandlerSuite) TestAddReportsIndex() {
	first := s.add(hashA.String())
	second := s.add(hashB.String())
	s.Require().NotNil(first.Index)
	s.Require().NotNil(second.Index)
	s.Equal(uint64(0), *first.Index)
	s.Equal(uint64(1), *second.Index)
	s.Equal(protocol.MethodAddCertificate, second.Receipt.Method)
}

func (s *HandlerSuite) TestAddByNonIssuerIsRejected() {
	rec := testutil.Do(s.T(), s.router, http.MethodPost, s.base+"/", addrs.Other, map[string]string{"hash": hashA.String()})
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Contains(rec.Body.String(), "issuer_not_active")
}

func (s *HandlerSuite) TestAddValidatesHashWidth() {
	rec := testutil.Do(s.T(), s.router, http.MethodPost, s.base+"/", addrs.Issuer, map[string]string{"hash": "0xabcd"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "hash must be a 32-byte hex hash")
}

func (s *HandlerSuite) TestRevokeThenRead() {
	s.add(hashA.String())
	s.add(hashB.String())

	rec := testutil.Do(s.T(), s.router, http.MethodPost, s.base+"/"+hashA.String()+"/revoke", addrs.Issuer, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = testutil.Do(s.T(), s.router, http.MethodGet, s.base+"/"+hashA.String(), "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	meta := testutil.DecodeBody[MetadataResponse](s.T(), rec)
	s.True(meta.Revoked)
	s.Equal(addrs.Issuer.String(), meta.Issuer)

	rec = testutil.Do(s.T(), s.router, http.MethodGet, s.base+"/?include_revoked=false", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	active := testutil.DecodeBody[CertificateListResponse](s.T(), rec)
	s.Equal(uint64(1), active.Count)
	s.Require().Len(active.Certificates, 1)
	s.Equal(hashB.String(), active.Certificates[0].Hash)

	rec = testutil.Do(s.T(), s.router, http.MethodGet, s.base+"/", "", nil)
	all := testutil.DecodeBody[CertificateListResponse](s.T(), rec)
	s.Equal(uint64(2), all.Count)
	s.Len(all.Certificates, 2)
}

func (s *HandlerSuite) TestRevokeByOtherIssuerIsForbidden() {
	s.add(hashA.String())
	rec := testutil.Do(s.T(), s.router, http.MethodPost, s.base+"/"+hashA.String()+"/revoke", addrs.Other, nil)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Contains(rec.Body.String(), "unauthorized")
}

func (s *HandlerSuite) TestRevokeUnknownHash() {
	rec := testutil.Do(s.T(), s.router, http.MethodPost, s.base+"/"+hashA.String()+"/revoke", addrs.Issuer, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestCertificateAt() {
	s.add(hashA.String())

	rec := testutil.Do(s.T(), s.router, http.MethodGet, s.base+"/index/0", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(hashA.String(), testutil.DecodeBody[CertificateResponse](s.T(), rec).Hash)

	rec = testutil.Do(s.T(), s.router, http.MethodGet, s.base+"/index/1", "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "index_out_of_range")

	rec = testutil.Do(s.T(), s.router, http.MethodGet, s.base+"/index/-1", "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}
