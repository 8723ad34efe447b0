// Package resource maps integer handles to shared references.
//
// Foreign runtimes such as WASM guests and C libraries cannot hold Go
// handles. A Table gives them small integers instead and keeps one
// ptr.Ref per handle on their behalf.
//
// # Handle Lifecycle
//
//	own     - Take moves the reference out (caller loses the handle)
//	borrow  - Borrow lends the object until ReturnBorrow
//	drop    - Remove releases the handle's strong reference
//
// # Handle Table
//
//	table := resource.NewTable[File]("files")
//
//	// Insert moves a Ref in, returns its handle
//	h := table.Insert(ptr.NewRef(f))
//
//	// A second handle to the same object
//	h2, err := table.Clone(h)
//
//	// Lend without transferring
//	f, err := table.Borrow(h)
//	defer table.ReturnBorrow(h)
//
//	// Take the reference back out
//	ref, err := table.Take(h)
//
// Borrows are counted on the handle and add a strong count through
// ptr.Unsafe, so a borrowed object stays alive even if Close force-drops the
// table. Take and Remove fail while borrows are outstanding.
//
// # Weak Handles
//
// WeakTable stores weak references paired with a Table:
//
//	weak := resource.NewWeakTable(table)
//	wh, err := weak.Downgrade(h)
//	h3, err := weak.Upgrade(wh) // fails once the object is destroyed
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	unsubscribe := table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s handle %d strong=%d", e.Type, e.Handle, e.Strong)
//	}))
//	defer unsubscribe()
//
// # Memory Management
//
// Handles are not garbage collected. The runtime that received a handle must
// remove it, or the table owner must call Close, which drops everything and
// reports handles that were still borrowed.
package resource
