package host

import (
	"fmt"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/ownership/errors"
	"github.com/wippyai/ownership/ptr"
	"github.com/wippyai/ownership/resource"
)

// Transfer is the ownership rule a WIT handle type implies.
type Transfer uint8

const (
	TransferNone   Transfer = iota // not a handle type
	TransferOwn                    // own<T>: ownership moves with the value
	TransferBorrow                 // borrow<T>: lent for the duration of a call
)

func (t Transfer) String() string {
	switch t {
	case TransferOwn:
		return "own"
	case TransferBorrow:
		return "borrow"
	default:
		return "none"
	}
}

// Semantics classifies t, following type aliases.
func Semantics(t wit.Type) Transfer {
	td, ok := t.(*wit.TypeDef)
	if !ok || td == nil {
		return TransferNone
	}
	switch kind := td.Kind.(type) {
	case *wit.Own:
		return TransferOwn
	case *wit.Borrow:
		return TransferBorrow
	case wit.Type:
		return Semantics(kind)
	default:
		return TransferNone
	}
}

// Lift resolves a handle a guest passed as a parameter of type t.
//
// For own<T> the handle leaves the table and r owns it; done is a no-op.
// For borrow<T> the guest keeps the handle, r is an extra strong reference
// and done must be called when the call returns to end the borrow.
func (m *Module[T]) Lift(t wit.Type, h uint32) (r *ptr.Ref[T], done func(), err error) {
	handle := resource.Handle(h)
	switch Semantics(t) {
	case TransferOwn:
		r, err = m.table.Take(handle)
		if err != nil {
			return nil, nil, err
		}
		return r, func() {}, nil
	case TransferBorrow:
		if _, err = m.table.Borrow(handle); err != nil {
			return nil, nil, err
		}
		r, err = m.table.Ref(handle)
		if err != nil {
			m.endBorrow(handle)
			return nil, nil, err
		}
		return r, func() {
			r.Drop()
			m.endBorrow(handle)
		}, nil
	default:
		return nil, nil, errors.TypeMismatch(errors.PhaseHost, typeString(t), "not a handle type")
	}
}

// endBorrow returns a borrow taken by Lift. There is no caller left to
// report to, so a failure is logged.
func (m *Module[T]) endBorrow(h resource.Handle) {
	if err := m.table.ReturnBorrow(h); err != nil {
		Logger().Warn("return borrow failed", zap.Uint32("handle", uint32(h)), zap.Error(err))
	}
}

// Lower hands r to a guest as a value of type t. For own<T> r moves into
// the table and the new handle is returned. Hosts cannot lend borrows to
// guests, so borrow<T> is unsupported.
func (m *Module[T]) Lower(t wit.Type, r *ptr.Ref[T]) (uint32, error) {
	switch Semantics(t) {
	case TransferOwn:
		if !r.Valid() {
			return 0, errors.InvalidInput(errors.PhaseHost, "lower of empty reference")
		}
		h := m.table.Insert(r)
		if h == 0 {
			return 0, errors.Closed(errors.PhaseHost, m.table.Name())
		}
		return uint32(h), nil
	case TransferBorrow:
		return 0, errors.Unsupported(errors.PhaseHost, "lowering borrow<T> to a guest")
	default:
		return 0, errors.TypeMismatch(errors.PhaseHost, typeString(t), "not a handle type")
	}
}

func typeString(t wit.Type) string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", t)
}
