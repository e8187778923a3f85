// Package resource provides the handle tables that stand in for raw pointers
// at the call boundary.
//
// Machines, responses and host objects are never handed out by address.
// The boundary gives the caller an opaque Handle, and every later call
// resolves it through a table:
//
//	table := resource.NewTable()
//	h := table.Insert(machineType, m)
//
//	v, ok := table.GetTyped(h, machineType)
//	v, ok = table.RemoveTyped(h, machineType)
//
// # Generations
//
// A handle carries the slot index and the slot generation. Releasing a slot
// bumps its generation before reuse, so a handle that outlived its value
// resolves to nothing instead of to whatever took the slot next:
//
//	h1 := table.Insert(1, "a")
//	table.Remove(h1)
//	h2 := table.Insert(1, "b") // same slot, new generation
//	table.Get(h1)              // (nil, false)
//
// # Typed Views
//
// Typed[T] narrows a shared table to one type ID:
//
//	machines := resource.NewTyped[*Machine](table, machineType)
//	h := machines.Insert(m)
//	m, ok := machines.Get(h)
//
// # Cleanup
//
// Values implementing Dropper have Drop called when removed, cleared, or
// when the table is closed. Observers receive EventCreated and EventDropped.
package resource
