package host

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/ownership/errors"
	"github.com/wippyai/ownership/resource"
)

// DefaultModuleName is the import module guests link against.
const DefaultModuleName = "ownership:refs/handles@0.1.0"

var i32 = []api.ValueType{api.ValueTypeI32}

// Module exposes a handle table to guests.
type Module[T any] struct {
	name  string
	table *resource.Table[T]
	weak  *resource.WeakTable[T]
}

// Option configures a Module.
type Option func(*options)

type options struct {
	name string
}

// WithName overrides DefaultModuleName.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// New creates a module over table.
func New[T any](table *resource.Table[T], opts ...Option) *Module[T] {
	o := options{name: DefaultModuleName}
	for _, opt := range opts {
		opt(&o)
	}
	return &Module[T]{
		name:  o.name,
		table: table,
		weak:  resource.NewWeakTable(table),
	}
}

func (m *Module[T]) Name() string { return m.name }
func (m *Module[T]) Table() *resource.Table[T] { return m.table }
func (m *Module[T]) Weak() *resource.WeakTable[T] { return m.weak }

type hostFunc struct {
	name string
	fn   func(ctx context.Context, arg uint32) int32
}

func (m *Module[T]) funcs() []hostFunc {
	return []hostFunc{
		{"clone", m.clone},
		{"drop", m.drop},
		{"borrow", m.borrow},
		{"return-borrow", m.returnBorrow},
		{"strong-count", m.strongCount},
		{"downgrade", m.downgrade},
		{"upgrade", m.upgrade},
		{"expired", m.expired},
		{"weak-drop", m.weakDrop},
	}
}

// Instantiate builds the host module into rt.
func (m *Module[T]) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	builder := rt.NewHostModuleBuilder(m.name)
	for _, f := range m.funcs() {
		fn := f.fn
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
				stack[0] = api.EncodeI32(fn(ctx, api.DecodeU32(stack[0])))
			}), i32, i32).
			Export(f.name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "instantiate "+m.name)
	}
	Logger().Debug("host module instantiated", zap.String("module", m.name), zap.String("table", m.table.Name()))
	return mod, nil
}

func (m *Module[T]) fail(op string, h uint32, err error) int32 {
	Logger().Debug("host call failed",
		zap.String("module", m.name),
		zap.String("op", op),
		zap.Uint32("handle", h),
		zap.Error(err))
	return StatusOf(err)
}

// handleResult returns a handle, or 0 on failure.
func (m *Module[T]) handleResult(op string, h uint32, nh resource.Handle, err error) int32 {
	if err != nil {
		m.fail(op, h, err)
		return 0
	}
	return int32(nh)
}

func (m *Module[T]) clone(_ context.Context, h uint32) int32 {
	nh, err := m.table.Clone(resource.Handle(h))
	return m.handleResult("clone", h, nh, err)
}

func (m *Module[T]) drop(_ context.Context, h uint32) int32 {
	if err := m.table.Remove(resource.Handle(h)); err != nil {
		return m.fail("drop", h, err)
	}
	return StatusOK
}

func (m *Module[T]) borrow(_ context.Context, h uint32) int32 {
	if _, err := m.table.Borrow(resource.Handle(h)); err != nil {
		return m.fail("borrow", h, err)
	}
	return StatusOK
}

func (m *Module[T]) returnBorrow(_ context.Context, h uint32) int32 {
	if err := m.table.ReturnBorrow(resource.Handle(h)); err != nil {
		return m.fail("return-borrow", h, err)
	}
	return StatusOK
}

func (m *Module[T]) strongCount(_ context.Context, h uint32) int32 {
	n, _ := m.table.StrongCount(resource.Handle(h))
	return int32(n)
}

func (m *Module[T]) downgrade(_ context.Context, h uint32) int32 {
	wh, err := m.weak.Downgrade(resource.Handle(h))
	return m.handleResult("downgrade", h, wh, err)
}

func (m *Module[T]) upgrade(_ context.Context, wh uint32) int32 {
	h, err := m.weak.Upgrade(resource.Handle(wh))
	return m.handleResult("upgrade", wh, h, err)
}

func (m *Module[T]) expired(_ context.Context, wh uint32) int32 {
	expired, err := m.weak.Expired(resource.Handle(wh))
	if err != nil {
		return m.fail("expired", wh, err)
	}
	if expired {
		return 1
	}
	return 0
}

func (m *Module[T]) weakDrop(_ context.Context, wh uint32) int32 {
	if err := m.weak.Drop(resource.Handle(wh)); err != nil {
		return m.fail("weak-drop", wh, err)
	}
	return StatusOK
}
