package authz_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"credledger/internal/authz"
	"credledger/internal/authz/mocks"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

const (
	owner  = domain.Address("0x00000000000000000000000000000000000000Aa")
	deputy = domain.Address("0x00000000000000000000000000000000000000Dd")
	other  = domain.Address("0x00000000000000000000000000000000000000ff")
)

type GuardSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	source *mocks.MockRoleSource
	guard  *authz.Guard
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = mocks.NewMockRoleSource(s.ctrl)
	s.guard = authz.NewGuard(authz.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func (s *GuardSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *GuardSuite) TestOwnerSkipsDeputyLookup() {
	s.source.EXPECT().Owner(gomock.Any()).Return(owner, nil)

	err := s.guard.RequireOwnerOrDeputy(context.Background(), s.source, "0x00000000000000000000000000000000000000AA", "add an issuer", "Issuers")
	s.NoError(err)
}

func (s *GuardSuite) TestDeputyMatchesCaseInsensitively() {
	s.source.EXPECT().Owner(gomock.Any()).Return(owner, nil)
	s.source.EXPECT().Deputy(gomock.Any()).Return(deputy, nil)

	err := s.guard.RequireOwnerOrDeputy(context.Background(), s.source, "0x00000000000000000000000000000000000000dD", "remove an issuer", "Issuers")
	s.NoError(err)
}

func (s *GuardSuite) TestStrangerIsDenied() {
	s.source.EXPECT().Owner(gomock.Any()).Return(owner, nil)
	s.source.EXPECT().Deputy(gomock.Any()).Return(deputy, nil)

	err := s.guard.RequireOwnerOrDeputy(context.Background(), s.source, other, "add an issuer", "Issuers")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Contains(err.Error(), "add an issuer")
	s.Contains(err.Error(), "Issuers")
	s.Contains(err.Error(), other.String())
}

func (s *GuardSuite) TestUnsetDeputyNeverMatches() {
	zero := domain.Address("0x0000000000000000000000000000000000000000")
	s.source.EXPECT().Owner(gomock.Any()).Return(owner, nil)
	s.source.EXPECT().Deputy(gomock.Any()).Return(zero, nil)

	err := s.guard.RequireOwnerOrDeputy(context.Background(), s.source, zero, "add an issuer", "Issuers")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *GuardSuite) TestRequireOwnerRejectsDeputy() {
	s.source.EXPECT().Owner(gomock.Any()).Return(owner, nil)

	err := s.guard.RequireOwner(context.Background(), s.source, deputy, "set the deputy", "Issuers")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *GuardSuite) TestLookupFailurePropagates() {
	unavailable := dErrors.New(dErrors.CodeUnavailable, "call owner on Issuers: down")
	s.source.EXPECT().Owner(gomock.Any()).Return(domain.Address(""), unavailable)

	err := s.guard.RequireOwnerOrDeputy(context.Background(), s.source, owner, "add an issuer", "Issuers")
	s.True(errors.Is(err, unavailable))
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}
