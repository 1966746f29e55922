// Package rtos implements a fixed-priority, preemptible-on-tick
// cooperative kernel for single-core ARM Cortex-M microcontrollers,
// running against a register-accurate simulated core.
//
// The kernel multiplexes a small fixed set of tasks onto one CPU:
//   - Strict fixed-priority scheduling (task id doubles as priority)
//   - A 1 ms system tick driving timeout bookkeeping
//   - Timed sleep and event-flag wait with optional timeout
//   - A PendSV-driven two-phase context switch, with independent
//     M0+ (integer only) and M4F (integer + FPU bank) variants
//
// The simulated machine models the register file, RAM, exception
// entry/return and the System Control Block registers the kernel
// touches, so every context switch is observable word by word.
package rtos

import "log"

// MaxTasks is the size of the task table. Task ids 0 through MaxTasks-1
// are valid; id 0 is reserved for the idle task, which must never block.
const MaxTasks = 8

// TaskState enumerates the scheduling states of a task.
type TaskState uint8

const (
	// StateReady means the task runs whenever it is the highest-priority
	// ready task.
	StateReady TaskState = iota
	// StateWaitTime means the task is blocked until its timeout expires.
	StateWaitTime
	// StateWaitFlag means the task is blocked until one of its masked
	// event flags is set or, with a timer armed, the timeout expires.
	StateWaitFlag
)

// String returns a human-readable name for this state.
func (s TaskState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateWaitTime:
		return "wait-time"
	case StateWaitFlag:
		return "wait-flag"
	default:
		return "unknown"
	}
}

// task is one task control block. The table index doubles as the static
// priority: higher index, higher priority.
type task struct {
	stackPointer uint32
	state        TaskState
	timeout      uint32
	eventFlags   uint32
	eventMask    uint32

	// A waiter that was switched out inside EventWait finishes the wait
	// on its next switch-in: snapshot the flags, consume the masked
	// bits, record the observed value.
	waitPending bool
	wakeValue   uint32
}

// TaskInfo is a snapshot of one task control block.
type TaskInfo struct {
	State        TaskState
	Timeout      uint32
	EventFlags   uint32
	EventMask    uint32
	StackPointer uint32
	WakeValue    uint32
}

// Scheduler is the kernel core: the task table, the ready selector and
// the context-switch driver for one simulated core.
type Scheduler struct {
	m   *Machine
	ops archOps

	tasks   [MaxTasks]task
	highest uint32

	current *task // nil until the first context switch
	next    *task

	ticks uint32
}

// NewScheduler creates a scheduler for the given machine. The PendSV
// vector must still be wired by the board: m.SetPendSVHandler(k.PendSV).
func NewScheduler(m *Machine) *Scheduler {
	return &Scheduler{m: m, ops: m.arch.ops()}
}

// Init configures PendSV as the lowest-priority exception by writing
// 0xFF into its System Handler Priority Register byte, so the switch
// tail-chains after every other handler.
func (k *Scheduler) Init() {
	k.m.WriteWord(addrSHPR3, k.m.ReadWord(addrSHPR3)|0xFF<<16)
}

// AddTask installs a task at priority id. The stack buffer is the
// region [stackBase, stackBase+stackSize) in machine RAM; the stack
// grows upside down from its top. A synthetic exception frame is laid
// down so the first switch into the task pops straight into entry.
// A task id out of range or a misaligned stack base is an unrecoverable
// configuration error and traps.
func (k *Scheduler) AddTask(id uint32, entry uint32, stackBase uint32, stackSize uint32) {
	if id >= MaxTasks {
		k.trap("task id out of range")
		return
	}
	if stackBase&3 != 0 {
		k.trap("task stack not 4-byte aligned")
		return
	}
	if id > k.highest {
		k.highest = id
	}

	sp := k.ops.buildInitialFrame(k.m, stackBase+stackSize, entry)

	t := &k.tasks[id]
	t.stackPointer = sp
	t.timeout = 0
	t.eventFlags = 0
	t.eventMask = 0
	t.waitPending = false
	t.state = StateReady
}

// Join hands the CPU to the scheduler. The selector runs with
// interrupts disabled; re-enabling takes the pended PendSV and the
// first chosen task pops into execution. The caller's own context is
// abandoned, never to be switched back to.
func (k *Scheduler) Join() {
	k.m.DisableIRQ()
	k.work()
	k.m.EnableIRQ()
}

// work is the ready selector: scan from the highest registered priority
// down, promote flag-waiters whose masked flags have arrived, pick the
// first ready task and pend a context switch if it differs from the
// current one. Must run with interrupts disabled or from an ISR.
func (k *Scheduler) work() {
	id := k.highest
	tsk := &k.tasks[id]
	for id != 0 {
		if tsk.state == StateWaitFlag && tsk.eventFlags&tsk.eventMask != 0 {
			tsk.state = StateReady
		}
		if tsk.state == StateReady {
			// found task to run
			k.next = tsk
			break
		}
		id--
		tsk = &k.tasks[id]
	}
	if id == 0 {
		// nothing else to do: the idle task never blocks
		k.next = tsk
	}

	if k.current != k.next {
		k.m.WriteWord(addrICSR, icsrPendSVSet)
	}
}

// PendSV is the context-switch exception body: save the outgoing task's
// callee-saved registers on its stack, swap stack pointers, restore the
// incoming task's. Wire it to the machine with SetPendSVHandler.
func (k *Scheduler) PendSV() {
	k.ops.pendSV(k)
}

// Current returns the id of the task now executing. ok is false before
// the first context switch.
func (k *Scheduler) Current() (uint32, bool) {
	if k.current == nil {
		return 0, false
	}
	return k.taskID(k.current), true
}

// Task returns a snapshot of the task control block at id.
// id must be less than MaxTasks.
func (k *Scheduler) Task(id uint32) TaskInfo {
	t := &k.tasks[id]
	return TaskInfo{
		State:        t.state,
		Timeout:      t.timeout,
		EventFlags:   t.eventFlags,
		EventMask:    t.eventMask,
		StackPointer: t.stackPointer,
		WakeValue:    t.wakeValue,
	}
}

// Ticks returns the running tick counter. It is 32 bits wide and wraps
// naturally.
func (k *Scheduler) Ticks() uint32 {
	return k.ticks
}

// running returns the current task, trapping if no task has been
// dispatched yet: blocking primitives are only meaningful after Join.
func (k *Scheduler) running() *task {
	if k.current == nil {
		k.trap("blocking call before first dispatch")
		return nil
	}
	return k.current
}

// trap reports an unrecoverable configuration error and halts the
// machine. This is the simulation analog of parking the core in a loop
// a debugger can name.
func (k *Scheduler) trap(reason string) {
	log.Printf("[rtos] kernel trap: %s", reason)
	k.m.halted = true
}

func (k *Scheduler) taskID(t *task) uint32 {
	for i := range k.tasks {
		if &k.tasks[i] == t {
			return uint32(i)
		}
	}
	return 0
}
