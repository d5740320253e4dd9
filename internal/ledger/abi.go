package ledger

import (
	"fmt"
	"sort"

	dErrors "credledger/pkg/domain-errors"
)

// Method describes one contract entry point.
type Method struct {
	Name     string `json:"name"`
	Inputs   int    `json:"inputs"`
	Mutating bool   `json:"mutating"`
}

// ABI is a contract's interface description.
type ABI struct {
	Name    string            `json:"name"`
	Methods map[string]Method `json:"methods"`
}

// NewABI indexes methods by name.
func NewABI(name string, methods ...Method) *ABI {
	abi := &ABI{Name: name, Methods: make(map[string]Method, len(methods))}
	for _, m := range methods {
		abi.Methods[m.Name] = m
	}
	return abi
}

// Read declares a non-mutating method.
func Read(name string, inputs int) Method { return Method{Name: name, Inputs: inputs} }

// Write declares a mutating method.
func Write(name string, inputs int) Method { return Method{Name: name, Inputs: inputs, Mutating: true} }

// Validate checks that method exists with the given arity and kind.
func (a *ABI) Validate(method string, nargs int, mutating bool) error {
	m, ok := a.Methods[method]
	if !ok {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s has no method %q", a.Name, method))
	}
	if m.Inputs != nargs {
		return dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("%s.%s takes %d arguments, got %d", a.Name, method, m.Inputs, nargs))
	}
	if m.Mutating != mutating {
		if m.Mutating {
			return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s.%s mutates state and must be submitted", a.Name, method))
		}
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s.%s is read-only and must be called", a.Name, method))
	}
	return nil
}

// MethodNames returns the sorted method names.
func (a *ABI) MethodNames() []string {
	names := make([]string, 0, len(a.Methods))
	for name := range a.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
