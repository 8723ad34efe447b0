package ptr

import (
	"reflect"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/ownership/errors"
)

// maxEmbedDepth bounds the search through embedded fields.
const maxEmbedDepth = 8

// Alias returns a Ref that exposes p but shares owner's counter and
// deleter, so p stays valid for as long as the returned handle lives.
// Deletion always runs against the owner's original object. An empty owner
// or a nil p yields an empty Ref and no count changes.
func Alias[T, U any](owner *Ref[U], p *T) *Ref[T] {
	if owner.isEmpty() || p == nil {
		return &Ref[T]{}
	}
	owner.rc.IncrementStrong()
	return newRef(handle[T]{ptr: p, rc: owner.rc, del: owner.del})
}

// AliasMove is Alias that consumes owner's reference instead of adding one.
func AliasMove[T, U any](owner *Ref[U], p *T) *Ref[T] {
	if owner.isEmpty() || p == nil {
		return &Ref[T]{}
	}
	h := owner.take()
	owner.track()
	return newRef(handle[T]{ptr: p, rc: h.rc, del: h.del})
}

// StaticCast converts r with conv, which is trusted to be correct. A nil
// conversion result counts as a failed cast.
func StaticCast[To, From any](r *Ref[From], conv func(*From) *To) *Ref[To] {
	if r.isEmpty() {
		return &Ref[To]{}
	}
	p := conv(r.ptr)
	if p == nil {
		castFailed[To, From]()
		return &Ref[To]{}
	}
	return Alias(r, p)
}

// StaticCastMove is StaticCast consuming r. r is untouched on failure.
func StaticCastMove[To, From any](r *Ref[From], conv func(*From) *To) *Ref[To] {
	if r.isEmpty() {
		return &Ref[To]{}
	}
	p := conv(r.ptr)
	if p == nil {
		castFailed[To, From]()
		return &Ref[To]{}
	}
	return AliasMove(r, p)
}

// DynamicCast converts r after checking at run time that the object really
// is, or embeds, a To. It tries the current pointer, then the concrete
// object the deleter is bound to, then their embedded fields. A failed cast
// returns an empty Ref and leaves the count alone.
func DynamicCast[To, From any](r *Ref[From]) *Ref[To] {
	if r.isEmpty() {
		return &Ref[To]{}
	}
	p, ok := resolve[To](r.ptr, r.del.obj)
	if !ok {
		castFailed[To, From]()
		return &Ref[To]{}
	}
	return Alias(r, p)
}

// DynamicCastMove is DynamicCast consuming r. r is untouched on failure.
func DynamicCastMove[To, From any](r *Ref[From]) *Ref[To] {
	if r.isEmpty() {
		return &Ref[To]{}
	}
	p, ok := resolve[To](r.ptr, r.del.obj)
	if !ok {
		castFailed[To, From]()
		return &Ref[To]{}
	}
	return AliasMove(r, p)
}

// ReinterpretCast reinterprets the pointer bits as *To. The caller
// guarantees the memory layout matches.
func ReinterpretCast[To, From any](r *Ref[From]) *Ref[To] {
	if r.isEmpty() {
		return &Ref[To]{}
	}
	return Alias(r, (*To)(unsafe.Pointer(r.ptr)))
}

// ReinterpretCastMove is ReinterpretCast consuming r.
func ReinterpretCastMove[To, From any](r *Ref[From]) *Ref[To] {
	if r.isEmpty() {
		return &Ref[To]{}
	}
	return AliasMove(r, (*To)(unsafe.Pointer(r.ptr)))
}

// ConstCast returns another reference to the same object. Go has no const
// qualifier, so this is Clone under the cast family's name.
func ConstCast[T any](r *Ref[T]) *Ref[T] {
	return r.Clone()
}

// ConstCastMove is ConstCast consuming r.
func ConstCastMove[T any](r *Ref[T]) *Ref[T] {
	return r.Move()
}

func castFailed[To, From any]() {
	stats.castFailures.Add(1)
	if ce := Logger().Check(zap.DebugLevel, "cast failed"); ce != nil {
		err := errors.CastFailed(typeName[*From](), typeName[*To]())
		ce.Write(zap.Error(err))
	}
}

func resolve[To any](cur, owner any) (*To, bool) {
	if p, ok := cur.(*To); ok {
		return p, true
	}
	if p, ok := owner.(*To); ok {
		return p, true
	}
	target := reflect.TypeFor[To]()
	for _, v := range [2]any{cur, owner} {
		if v == nil {
			continue
		}
		if p := embedded(reflect.ValueOf(v), target, 0); p != nil {
			return (*To)(p), true
		}
	}
	return nil, false
}

// embedded searches the embedded fields of the struct v points to for a
// field of type target or *target, depth first.
func embedded(v reflect.Value, target reflect.Type, depth int) unsafe.Pointer {
	if depth > maxEmbedDepth || v.Kind() != reflect.Pointer || v.IsNil() {
		return nil
	}
	e := v.Elem()
	if e.Kind() != reflect.Struct {
		return nil
	}
	t := e.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		fv := e.Field(i)
		var next reflect.Value
		switch f.Type.Kind() {
		case reflect.Struct:
			next = fv.Addr()
			if f.Type == target {
				return next.UnsafePointer()
			}
		case reflect.Pointer:
			if fv.IsNil() {
				continue
			}
			next = fv
			if f.Type.Elem() == target {
				return fv.UnsafePointer()
			}
		default:
			continue
		}
		if p := embedded(next, target, depth+1); p != nil {
			return p
		}
	}
	return nil
}
