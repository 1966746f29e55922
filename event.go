package rtos

// Sleep blocks the running task for the given number of ticks. The task
// wakes on the tick that retires the timeout, so it resumes no earlier
// than ticks tick events and no later than ticks+1. Sleep(0) arms no
// timer; it only reruns the selector, yielding to any higher-priority
// ready task.
func (k *Scheduler) Sleep(ticks uint32) {
	k.m.DisableIRQ()
	if t := k.running(); t != nil {
		if ticks > 0 {
			t.timeout = ticks
			t.state = StateWaitTime
		}
		k.work()
	}
	k.m.EnableIRQ()
}

// EventWait blocks the running task until at least one of the flags in
// mask is set. The observed value is the task's full flag word before
// the bits in mask are consumed; flags outside mask survive. If a
// masked flag is already set the call completes in place and returns
// the snapshot directly. A task that blocked observes its snapshot at
// resume, in r0 of its restored frame and through Task().WakeValue; the
// in-call return value is then zero.
func (k *Scheduler) EventWait(mask uint32) uint32 {
	return k.eventWait(mask, 0)
}

// EventWaitTimeout is EventWait with a timer armed: if no masked flag
// arrives within ticks ticks the task wakes anyway, and the zero
// intersection of the observed value with mask signals the timeout.
// A ticks of 0 arms no timer.
func (k *Scheduler) EventWaitTimeout(mask uint32, ticks uint32) uint32 {
	return k.eventWait(mask, ticks)
}

func (k *Scheduler) eventWait(mask uint32, ticks uint32) uint32 {
	k.m.DisableIRQ()
	t := k.running()
	if t == nil {
		k.m.EnableIRQ()
		return 0
	}
	t.eventMask = mask
	t.timeout = ticks
	t.state = StateWaitFlag
	k.work()
	if k.next != t {
		// switching away: the wait finishes when this task is next
		// switched in
		t.waitPending = true
		k.m.EnableIRQ()
		return 0
	}
	v := t.eventFlags
	t.eventFlags &^= mask
	t.wakeValue = v
	k.m.EnableIRQ()
	return v
}

// EventSet ORs mask into the target task's event flags and runs the
// selector. Callable from a task or from ISR context. The flag-to-ready
// promotion happens inside the selector, so a flag set before a waiter
// begins waiting is never lost.
func (k *Scheduler) EventSet(id uint32, mask uint32) {
	if id >= MaxTasks {
		k.trap("task id out of range")
		return
	}
	k.m.DisableIRQ()
	k.tasks[id].eventFlags |= mask
	k.work()
	k.m.EnableIRQ()
}

// EventClear clears the given flags on the running task. No reschedule.
func (k *Scheduler) EventClear(mask uint32) {
	k.m.DisableIRQ()
	if t := k.running(); t != nil {
		t.eventFlags &^= mask
	}
	k.m.EnableIRQ()
}

// completeWait finishes an event wait for a task that was switched out
// inside EventWait: snapshot the flags, consume the masked bits, record
// the observed value and deposit it in the r0 slot of the stacked
// hardware frame, so the exception return hands it to the resumed call.
// Runs at the tail of the PendSV handler, when sp points at the
// incoming task's hardware frame.
func (k *Scheduler) completeWait() {
	t := k.current
	if t == nil || !t.waitPending {
		return
	}
	t.waitPending = false
	v := t.eventFlags
	t.eventFlags &^= t.eventMask
	t.wakeValue = v
	k.m.WriteWord(k.m.regs[rSP], v)
}
