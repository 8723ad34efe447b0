// Package refcount implements the counter block shared by strong and weak
// handles.
//
// A Counter starts with one strong reference and no weak references. The two
// counts are packed into a single 64-bit atomic word:
//
//	bits 63..32  strong count
//	bits 31..0   weak count
//
// Packing lets every operation observe both counts at once, so exactly one
// decrement ever sees the word reach zero. That decrement reports Released
// and is the only caller allowed to recycle the block.
//
// # Operations
//
//	IncrementStrong / IncrementWeak   single atomic add
//	DecrementStrong / DecrementWeak   CAS loop, never goes below zero
//	TryIncrementStrong                CAS loop, never increments a zero count
//
// Decrementing a count that is already zero is a contract violation. The
// counter refuses the change and reports Underflow instead of wrapping.
package refcount
