package chain

import (
	"credledger/internal/ledger"
	dErrors "credledger/pkg/domain-errors"
)

// Contract is authoritative logic hosted by a Chain.
type Contract interface {
	ABI() *ledger.ABI
	// Invoke runs method. Returned errors revert the whole transaction.
	Invoke(tx *TxContext, method string, args Args) (any, error)
}

// Initializer is implemented by contracts that set up state at deploy time.
type Initializer interface {
	Init(tx *TxContext) error
}

// Handler implements one contract method.
type Handler func(tx *TxContext, args Args) (any, error)

// Router dispatches by method name and derives the ABI from its registrations.
// Contracts embed it.
type Router struct {
	abi      *ledger.ABI
	handlers map[string]Handler
}

func NewRouter(name string) *Router {
	return &Router{abi: ledger.NewABI(name), handlers: make(map[string]Handler)}
}

// Read registers a method that must not write state.
func (r *Router) Read(name string, inputs int, h Handler) *Router {
	return r.register(ledger.Read(name, inputs), h)
}

// Write registers a mutating method.
func (r *Router) Write(name string, inputs int, h Handler) *Router {
	return r.register(ledger.Write(name, inputs), h)
}

func (r *Router) register(m ledger.Method, h Handler) *Router {
	r.abi.Methods[m.Name] = m
	r.handlers[m.Name] = h
	return r
}

func (r *Router) ABI() *ledger.ABI { return r.abi }

func (r *Router) Invoke(tx *TxContext, method string, args Args) (any, error) {
	h, ok := r.handlers[method]
	if !ok {
		return nil, ledger.Revert(dErrors.CodeBadRequest, "%s has no method %q", r.abi.Name, method)
	}
	return h(tx, args)
}
