package rtos

// SysTick is the 1 ms system tick handler: advance the tick counter,
// retire expiring timeouts, then run the selector. It executes as a
// simulated exception, so a context switch pended by the selector
// tail-chains on exit.
func (k *Scheduler) SysTick() {
	k.m.RunISR(func() {
		k.ticks++
		k.timeUpdate()
		k.work()
	})
}

// timeUpdate decrements every armed timeout and readies tasks whose
// timer just expired. A flag-waiter with an expiring timer wakes with
// whatever flags have arrived, possibly none. The idle task is excluded
// by the loop bound.
func (k *Scheduler) timeUpdate() {
	for id := k.highest; id != 0; id-- {
		tsk := &k.tasks[id]
		if tsk.timeout == 0 {
			continue
		}
		if tsk.timeout == 1 {
			tsk.timeout = 0
			tsk.state = StateReady
		} else {
			tsk.timeout--
		}
	}
}
