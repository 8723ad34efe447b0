// Package host exposes a resource.Table to WebAssembly guests.
//
// Module builds a wazero host module whose functions operate on table
// handles. Every function takes and returns i32 values:
//
//	clone(h) -> h'            new handle to the same object, 0 on failure
//	drop(h) -> status         release the handle's strong reference
//	borrow(h) -> status       lend the object until return-borrow
//	return-borrow(h) -> status
//	strong-count(h) -> n      0 for an invalid handle
//	downgrade(h) -> wh        weak handle, 0 on failure
//	upgrade(wh) -> h          strong handle, 0 once the object is gone
//	expired(wh) -> 0|1        negative status for an invalid handle
//	weak-drop(wh) -> status
//
// Statuses are 0 for success or one of the negative Status constants.
//
// # WIT Ownership
//
// Lift and Lower apply the Component Model transfer rules for parameters
// typed own<T> and borrow<T>:
//
//	own<T>     the handle moves; the guest loses it on Lift
//	borrow<T>  the guest keeps the handle; the host holds it for one call
//
// Example:
//
//	table := resource.NewTable[Session]("sessions")
//	mod := host.New(table)
//	if _, err := mod.Instantiate(ctx, rt); err != nil {
//	    return err
//	}
package host
