// Package escrow holds seeker deposits and runs the verification request
// state machine. Deposited tokens sit at the escrow contract's own address.
//
// Per seeker, available + in-flight never exceeds deposited minus withdrawn
// minus paid out. A request that ends in SeekerFailed keeps its cost in flight;
// no refund path exists for it.
package escrow

import (
	"strconv"

	"github.com/ipfs/go-cid"

	"credledger/contracts/protocol"
	"credledger/internal/ledger"
	"credledger/internal/ledger/chain"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/hexcodec"
)

type account struct {
	Available uint64 `json:"available"`
	Inflight  uint64 `json:"inflight"`
	Deposited uint64 `json:"deposited"`
	Withdrawn uint64 `json:"withdrawn"`
	PaidOut   uint64 `json:"paid_out"`
}

func (a account) check(seeker domain.Address) error {
	if a.Withdrawn+a.PaidOut > a.Deposited {
		return ledger.Revert(dErrors.CodeInvariantViolation,
			"escrow account %s: released %d exceeds deposited %d", seeker, a.Withdrawn+a.PaidOut, a.Deposited)
	}
	if held := a.Deposited - a.Withdrawn - a.PaidOut; a.Available+a.Inflight > held {
		return ledger.Revert(dErrors.CodeInvariantViolation,
			"escrow account %s: available %d + in-flight %d exceeds held %d", seeker, a.Available, a.Inflight, held)
	}
	return nil
}

type Contract struct {
	*chain.Router
	token        domain.Address
	certificates domain.Address
	cost         uint64
}

// New binds the escrow to the token and certificate contracts and fixes the
// per-request price.
func New(token, certificates domain.Address, cost uint64) *Contract {
	c := &Contract{
		Router:       chain.NewRouter(protocol.Escrow),
		token:        token,
		certificates: certificates,
		cost:         cost,
	}
	c.Write(protocol.MethodIncreaseAvailableBalance, 1, c.increaseAvailableBalance).
		Write(protocol.MethodRefundAvailableBalance, 0, c.refundAvailableBalance).
		Read(protocol.MethodSeekerAvailableBalance, 1, c.seekerAvailableBalance).
		Read(protocol.MethodSeekerInflightBalance, 1, c.seekerInflightBalance).
		Read(protocol.MethodRequestCost, 0, c.requestCost).
		Write(protocol.MethodSubmitRequest, 2, c.submitRequest).
		Write(protocol.MethodUserCompleteRequest, 2, c.userCompleteRequest).
		Write(protocol.MethodUserDenyRequest, 1, c.userDenyRequest).
		Write(protocol.MethodSeekerCancelRequest, 1, c.seekerCancelRequest).
		Write(protocol.MethodSeekerCompleteRequest, 2, c.seekerCompleteRequest).
		Read(protocol.MethodGetRequest, 1, c.getRequest).
		Read(protocol.MethodGetSeekerRequests, 1, c.getSeekerRequests)
	return c
}

func accountKey(seeker domain.Address) string { return "account/" + seeker.Key() }
func requestKey(id uint64) string             { return "request/" + strconv.FormatUint(id, 10) }
func seekerKey(seeker domain.Address) string  { return "seeker/" + seeker.Key() }

func loadAccount(tx *chain.TxContext, seeker domain.Address) (account, error) {
	var a account
	_, err := tx.Get(accountKey(seeker), &a)
	return a, err
}

func saveAccount(tx *chain.TxContext, seeker domain.Address, a account) error {
	if err := a.check(seeker); err != nil {
		return err
	}
	return tx.Put(accountKey(seeker), a)
}

func loadRequest(tx *chain.TxContext, id uint64) (protocol.Request, error) {
	var r protocol.Request
	found, err := tx.Get(requestKey(id), &r)
	if err != nil {
		return r, err
	}
	if !found {
		return r, ledger.Revert(dErrors.CodeNotFound, "no request %d", id)
	}
	return r, nil
}

// transition moves r to status, requiring caller to be the party that may act.
func transition(tx *chain.TxContext, r *protocol.Request, caller string, to protocol.RequestStatus) error {
	if !domain.Address(caller).Equal(tx.Sender()) {
		return ledger.Revert(dErrors.CodeUnauthorized, "address %s may not move request %d to %s", tx.Sender(), r.ID, to)
	}
	if !protocol.CanTransition(r.Status, to) {
		return ledger.Revert(dErrors.CodeInvalidState, "request %d is %s and cannot become %s", r.ID, r.Status, to)
	}
	from := r.Status
	r.Status = to
	if err := tx.Put(requestKey(r.ID), r); err != nil {
		return err
	}
	tx.Emit(protocol.EventRequestStatusChanged, map[string]string{
		"id":   strconv.FormatUint(r.ID, 10),
		"from": from.String(),
		"to":   to.String(),
	})
	return nil
}

// release moves a request's cost from in-flight back to available.
func release(tx *chain.TxContext, r protocol.Request) error {
	seeker := domain.Address(r.Seeker)
	a, err := loadAccount(tx, seeker)
	if err != nil {
		return err
	}
	a.Inflight -= r.Cost
	a.Available += r.Cost
	return saveAccount(tx, seeker, a)
}

func (c *Contract) increaseAvailableBalance(tx *chain.TxContext, args chain.Args) (any, error) {
	amount, err := args.Uint64(0)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, ledger.Revert(dErrors.CodeInvalidInput, "deposit amount must be positive")
	}
	seeker := tx.Sender()
	if err := tx.Invoke(c.token, protocol.MethodTransferFrom, nil, seeker, tx.Self(), amount); err != nil {
		return nil, err
	}
	a, err := loadAccount(tx, seeker)
	if err != nil {
		return nil, err
	}
	a.Available += amount
	a.Deposited += amount
	if err := saveAccount(tx, seeker, a); err != nil {
		return nil, err
	}
	tx.Emit(protocol.EventBalanceIncreased, map[string]string{"seeker": seeker.String(), "amount": strconv.FormatUint(amount, 10)})
	return a.Available, nil
}

// refundAvailableBalance returns the refunded amount; zero is a no-op.
func (c *Contract) refundAvailableBalance(tx *chain.TxContext, _ chain.Args) (any, error) {
	seeker := tx.Sender()
	a, err := loadAccount(tx, seeker)
	if err != nil {
		return nil, err
	}
	amount := a.Available
	if amount == 0 {
		return uint64(0), nil
	}
	a.Available = 0
	a.Withdrawn += amount
	if err := saveAccount(tx, seeker, a); err != nil {
		return nil, err
	}
	if err := tx.Invoke(c.token, protocol.MethodTransfer, nil, seeker, amount); err != nil {
		return nil, err
	}
	tx.Emit(protocol.EventBalanceRefunded, map[string]string{"seeker": seeker.String(), "amount": strconv.FormatUint(amount, 10)})
	return amount, nil
}

func (c *Contract) seekerAvailableBalance(tx *chain.TxContext, args chain.Args) (any, error) {
	seeker, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	a, err := loadAccount(tx, seeker)
	return a.Available, err
}

func (c *Contract) seekerInflightBalance(tx *chain.TxContext, args chain.Args) (any, error) {
	seeker, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	a, err := loadAccount(tx, seeker)
	return a.Inflight, err
}

func (c *Contract) requestCost(*chain.TxContext, chain.Args) (any, error) {
	return c.cost, nil
}

func (c *Contract) submitRequest(tx *chain.TxContext, args chain.Args) (any, error) {
	user, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	hash, err := args.Hash(1)
	if err != nil {
		return nil, err
	}
	seeker := tx.Sender()

	a, err := loadAccount(tx, seeker)
	if err != nil {
		return nil, err
	}
	if a.Available < c.cost {
		return nil, ledger.Revert(dErrors.CodeInsufficientBalance,
			"available balance of %s is %d, request costs %d", seeker, a.Available, c.cost)
	}
	if err := tx.Invoke(c.certificates, protocol.MethodGetCertificateIndex, nil, user, hash); err != nil {
		return nil, err
	}

	var lastID uint64
	if _, err := tx.Get("last_id", &lastID); err != nil {
		return nil, err
	}
	r := protocol.Request{
		ID:     lastID + 1,
		Seeker: seeker.String(),
		User:   user.String(),
		Hash:   hash,
		Cost:   c.cost,
		Status: protocol.RequestInitial,
	}
	a.Available -= c.cost
	a.Inflight += c.cost
	if err := saveAccount(tx, seeker, a); err != nil {
		return nil, err
	}

	var ids []uint64
	if _, err := tx.Get(seekerKey(seeker), &ids); err != nil {
		return nil, err
	}
	if err := tx.Put("last_id", r.ID); err != nil {
		return nil, err
	}
	if err := tx.Put(requestKey(r.ID), r); err != nil {
		return nil, err
	}
	if err := tx.Put(seekerKey(seeker), append(ids, r.ID)); err != nil {
		return nil, err
	}
	tx.Emit(protocol.EventRequestSubmitted, map[string]string{
		"id":     strconv.FormatUint(r.ID, 10),
		"seeker": r.Seeker,
		"user":   r.User,
		"hash":   r.Hash,
	})
	return r, nil
}

func (c *Contract) userCompleteRequest(tx *chain.TxContext, args chain.Args) (any, error) {
	id, err := args.Uint64(0)
	if err != nil {
		return nil, err
	}
	locator, err := args.String(1)
	if err != nil {
		return nil, err
	}
	if _, err := cid.Decode(locator); err != nil {
		return nil, ledger.Revert(dErrors.CodeInvalidInput, "locator %q is not a content identifier: %v", locator, err)
	}
	r, err := loadRequest(tx, id)
	if err != nil {
		return nil, err
	}
	r.Locator = locator
	if err := transition(tx, &r, r.User, protocol.RequestUserCompleted); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Contract) userDenyRequest(tx *chain.TxContext, args chain.Args) (any, error) {
	id, err := args.Uint64(0)
	if err != nil {
		return nil, err
	}
	r, err := loadRequest(tx, id)
	if err != nil {
		return nil, err
	}
	if err := transition(tx, &r, r.User, protocol.RequestUserDenied); err != nil {
		return nil, err
	}
	if err := release(tx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Contract) seekerCancelRequest(tx *chain.TxContext, args chain.Args) (any, error) {
	id, err := args.Uint64(0)
	if err != nil {
		return nil, err
	}
	r, err := loadRequest(tx, id)
	if err != nil {
		return nil, err
	}
	if err := transition(tx, &r, r.Seeker, protocol.RequestSeekerCancelled); err != nil {
		return nil, err
	}
	if err := release(tx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// seekerCompleteRequest settles a user-approved request. A matching hash pays
// the cost to the user; a mismatch records SeekerFailed and leaves the cost in
// flight.
func (c *Contract) seekerCompleteRequest(tx *chain.TxContext, args chain.Args) (any, error) {
	id, err := args.Uint64(0)
	if err != nil {
		return nil, err
	}
	retrieved, err := args.String(1)
	if err != nil {
		return nil, err
	}
	r, err := loadRequest(tx, id)
	if err != nil {
		return nil, err
	}

	if !hexcodec.Equal(retrieved, r.Hash) {
		if err := transition(tx, &r, r.Seeker, protocol.RequestSeekerFailed); err != nil {
			return nil, err
		}
		return r, nil
	}

	if err := transition(tx, &r, r.Seeker, protocol.RequestSeekerCompleted); err != nil {
		return nil, err
	}
	seeker := domain.Address(r.Seeker)
	a, err := loadAccount(tx, seeker)
	if err != nil {
		return nil, err
	}
	a.Inflight -= r.Cost
	a.PaidOut += r.Cost
	if err := saveAccount(tx, seeker, a); err != nil {
		return nil, err
	}
	if err := tx.Invoke(c.token, protocol.MethodTransfer, nil, r.User, r.Cost); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Contract) getRequest(tx *chain.TxContext, args chain.Args) (any, error) {
	id, err := args.Uint64(0)
	if err != nil {
		return nil, err
	}
	return loadRequest(tx, id)
}

func (c *Contract) getSeekerRequests(tx *chain.TxContext, args chain.Args) (any, error) {
	seeker, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	ids := []uint64{}
	if _, err := tx.Get(seekerKey(seeker), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
