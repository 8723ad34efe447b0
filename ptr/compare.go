package ptr

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// Address is the raw address a handle points at. It orders and compares the
// way the underlying pointers do, and is usable as a map key.
type Address uintptr

// Nil is the address of every empty handle.
const Nil Address = 0

// Addresser is implemented by every handle kind and by Address itself, so
// handles, raw pointers (via AddressOf) and Nil compare with each other.
type Addresser interface {
	Address() Address
}

// AddressOf adapts a raw pointer for comparison with handles.
func AddressOf[T any](p *T) Address {
	return Address(uintptr(unsafe.Pointer(p)))
}

func (a Address) Address() Address {
	return a
}

// String renders the address as 0x..., with Nil as 0x0.
func (a Address) String() string {
	return fmt.Sprintf("%#x", uintptr(a))
}

func addressOf(a Addresser) Address {
	if a == nil {
		return Nil
	}
	return a.Address()
}

// Compare returns -1, 0 or +1 by address.
func Compare(a, b Addresser) int {
	return cmp.Compare(addressOf(a), addressOf(b))
}

// Equal reports whether a and b point at the same address.
func Equal(a, b Addresser) bool {
	return addressOf(a) == addressOf(b)
}

// Less reports whether a's address orders before b's.
func Less(a, b Addresser) bool {
	return addressOf(a) < addressOf(b)
}

// Hash hashes the address of a with xxhash. Equal addresses hash equally.
func Hash(a Addresser) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(addressOf(a)))
	return xxhash.Sum64(buf[:])
}

// Fprint writes a's address to w. The object itself is never rendered.
func Fprint(w io.Writer, a Addresser) (int, error) {
	return io.WriteString(w, addressOf(a).String())
}
