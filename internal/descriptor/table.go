// Package descriptor maps client descriptor numbers to the kernel
// descriptors held by the server.
package descriptor

// Capacity is the fixed number of client descriptor slots.
const Capacity = 1024

// firstFD is where dense allocation starts; 0, 1 and 2 are reserved so
// client descriptors never collide with the client's standard streams.
const firstFD = 3

// Table is a fixed-size mapping from client descriptor to kernel
// descriptor.
//
// Allocation is dense: Add hands out consecutive numbers starting at 3 and
// never goes back. AddFrom, which services the F_DUPFD scan, also starts at
// the cursor or above, so a slot freed below the cursor is never handed out
// again. The table has a single writer
// (the server's dispatch loop) and is not safe for concurrent use.
type Table struct {
	entries [Capacity]int32
	next    int32
}

// NewTable returns an empty table with every slot free.
func NewTable() *Table {
	t := &Table{next: firstFD}
	for i := range t.entries {
		t.entries[i] = -1
	}
	return t
}

// Add maps a kernel descriptor to the next dense client descriptor. It
// reports false when the cursor has exhausted the table; the caller owns
// the kernel descriptor in that case.
func (t *Table) Add(kernelFD int32) (int32, bool) {
	if t.next >= Capacity {
		return -1, false
	}
	clientFD := t.next
	t.next++
	t.entries[clientFD] = kernelFD
	return clientFD, true
}

// AddFrom maps a kernel descriptor to the first free client descriptor at
// or above max(min, cursor), and moves the cursor past the descriptor it
// assigns. It reports false when no slot is free.
func (t *Table) AddFrom(kernelFD, min int32) (int32, bool) {
	clientFD := min
	if clientFD < t.next {
		clientFD = t.next
	}
	for ; clientFD < Capacity; clientFD++ {
		if t.entries[clientFD] == -1 {
			t.entries[clientFD] = kernelFD
			if clientFD >= t.next {
				t.next = clientFD + 1
			}
			return clientFD, true
		}
	}
	return -1, false
}

// Remove frees the slot of a client descriptor. Out-of-range values are
// ignored.
func (t *Table) Remove(clientFD int32) {
	if clientFD >= 0 && clientFD < Capacity {
		t.entries[clientFD] = -1
	}
}

// Translate returns the kernel descriptor mapped to a client descriptor.
// It reports false for out-of-range or unmapped descriptors, which must
// never reach the kernel.
func (t *Table) Translate(clientFD int32) (int32, bool) {
	if clientFD < 0 || clientFD >= Capacity {
		return -1, false
	}
	kernelFD := t.entries[clientFD]
	return kernelFD, kernelFD != -1
}

// Len returns the number of mapped descriptors.
func (t *Table) Len() (n int) {
	for _, fd := range t.entries {
		if fd != -1 {
			n++
		}
	}
	return n
}

// Range calls f for each mapped (client, kernel) descriptor pair. The
// function f may return false to interrupt the iteration.
func (t *Table) Range(f func(clientFD, kernelFD int32) bool) {
	for clientFD, kernelFD := range t.entries {
		if kernelFD == -1 {
			continue
		}
		if !f(int32(clientFD), kernelFD) {
			return
		}
	}
}
