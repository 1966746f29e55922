// Command rtossim assembles a simulated Cortex-M board, registers a
// small set of demonstration tasks and traces the kernel's scheduling
// decisions tick by tick.
//
// The board runs three tasks: the idle task, a worker that waits for
// event flag 0x1 with a 10-tick timeout, and a sensor that sleeps in
// 5-tick periods. An interrupt sets the worker's flag at a configurable
// tick.
package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	rtos "github.com/user-none/go-rtos-cortexm"
)

var cli struct {
	Arch  string `default:"m4f" enum:"m0plus,m4f" help:"Core variant to simulate."`
	Ticks uint32 `default:"40" help:"Number of 1 ms system ticks to run."`
	Event uint32 `default:"12" help:"Tick at which an interrupt sets the worker's event flag."`
}

// Synthetic code addresses for the task entry points.
const (
	idleEntry   = 0x00000100
	workerEntry = 0x00000200
	sensorEntry = 0x00000300

	stackSize = 1024

	workerID = 1
	sensorID = 2

	workerFlag = 0x1
)

type board struct {
	m *rtos.Machine
	k *rtos.Scheduler

	// set once a task has been dispatched for the first time, so a
	// later switch-in is reported as a wake
	started [rtos.MaxTasks]bool
}

func main() {
	kong.Parse(&cli)

	arch := rtos.M0Plus
	if cli.Arch == "m4f" {
		arch = rtos.M4F
	}

	b := &board{
		m: rtos.NewMachine(arch, 64*1024),
	}
	b.k = rtos.NewScheduler(b.m)
	b.m.SetPendSVHandler(b.k.PendSV)
	b.k.Init()

	// carve task stacks from the bottom of RAM; the boot stack sits at
	// the top
	b.k.AddTask(0, idleEntry, rtos.RAMBase, stackSize)
	b.k.AddTask(workerID, workerEntry, rtos.RAMBase+1*stackSize, stackSize)
	b.k.AddTask(sensorID, sensorEntry, rtos.RAMBase+2*stackSize, stackSize)

	fmt.Printf("rtossim: %s core, %d tasks, flag at tick %d\n", arch, 3, cli.Event)

	b.k.Join()
	b.run()

	for !b.m.Halted() && b.k.Ticks() < cli.Ticks {
		b.k.SysTick()
		if b.k.Ticks() == cli.Event {
			b.m.RunISR(func() {
				b.k.EventSet(workerID, workerFlag)
			})
			fmt.Printf("tick %3d: irq sets worker flag %#x\n", b.k.Ticks(), workerFlag)
		}
		b.run()
	}

	if b.m.Halted() {
		fmt.Println("rtossim: machine halted")
	}
}

// run plays the scripted task bodies until the board idles. Each pass
// acts as whichever task the kernel dispatched: the worker re-arms its
// event wait, the sensor re-arms its sleep.
func (b *board) run() {
	for !b.m.Halted() {
		id, ok := b.k.Current()
		if !ok || id == 0 {
			return
		}
		switch id {
		case workerID:
			if b.started[id] {
				fmt.Printf("tick %3d: worker woke, flags=%#x\n",
					b.k.Ticks(), b.k.Task(workerID).WakeValue)
			}
			b.started[id] = true
			b.k.EventWaitTimeout(workerFlag, 10)
		case sensorID:
			if b.started[id] {
				fmt.Printf("tick %3d: sensor sample\n", b.k.Ticks())
			}
			b.started[id] = true
			b.k.Sleep(5)
		default:
			return
		}
	}
}
