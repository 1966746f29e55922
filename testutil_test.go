package rtos

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Synthetic code addresses for test task entry points.
const (
	entryIdle = 0x00000100
	entryT1   = 0x00000200
	entryT2   = 0x00000300
	entryT3   = 0x00000400
)

// testRAM is the SRAM size of the test board.
const testRAM = 64 * 1024

const testStackSize = 1024

// stackBase returns the base of the stack region carved out for task
// slot i, starting at the bottom of RAM. The boot stack sits at the top.
func stackBase(i uint32) uint32 {
	return RAMBase + i*testStackSize
}

// newBoard builds a machine and scheduler with the PendSV vector wired
// and the kernel initialized. No tasks are registered.
func newBoard(t *testing.T, arch Arch) (*Machine, *Scheduler) {
	t.Helper()
	m := NewMachine(arch, testRAM)
	k := NewScheduler(m)
	m.SetPendSVHandler(k.PendSV)
	k.Init()
	return m, k
}

// newRunningBoard registers the idle task plus application tasks 1..n
// and joins, dispatching the highest-priority one.
func newRunningBoard(t *testing.T, arch Arch, n uint32) (*Machine, *Scheduler) {
	t.Helper()
	m, k := newBoard(t, arch)
	entries := []uint32{entryIdle, entryT1, entryT2, entryT3}
	require.Less(t, int(n), len(entries))
	for id := uint32(0); id <= n; id++ {
		k.AddTask(id, entries[id], stackBase(id), testStackSize)
	}
	k.Join()
	require.False(t, m.Halted())
	return m, k
}

// currentID returns the running task's id, failing the test if nothing
// has been dispatched yet.
func currentID(t *testing.T, k *Scheduler) uint32 {
	t.Helper()
	id, ok := k.Current()
	require.True(t, ok, "no task dispatched")
	return id
}
