package rtos

// m0plusOps implements the ARMv6-M variant. The core can push only
// r4-r7 directly; r8-r11 travel through a low scratch register one word
// at a time, which is what fixes the software frame order.
type m0plusOps struct{}

// m0plusFrame is the software-saved frame in ascending stack order,
// exactly as the handler's save sequence lays it out: push {r4-r7}
// first, then r8-r11 one at a time below it.
var m0plusFrame = [8]int{11, 10, 9, 8, 4, 5, 6, 7}

func (m0plusOps) buildInitialFrame(m *Machine, top uint32, entry uint32) uint32 {
	sp := hwFrame(m, top, entry)
	for i := len(m0plusFrame) - 1; i >= 0; i-- {
		sp -= 4
		m.WriteWord(sp, uint32(m0plusFrame[i])) // register-number seed (put by ISR-SW)
	}
	return sp
}

func (m0plusOps) pendSV(k *Scheduler) {
	m := k.m
	m.DisableIRQ()
	if k.current != nil {
		// push {r4-r7}, then r8-r11 via a scratch register
		for i := len(m0plusFrame) - 1; i >= 0; i-- {
			m.push(m.regs[m0plusFrame[i]])
		}
		k.current.stackPointer = m.regs[rSP]
	}

	m.regs[rSP] = k.next.stackPointer
	// pop r11-r8 via the scratch register, then pop {r4-r7}
	for _, r := range m0plusFrame {
		m.regs[r] = m.pop()
	}
	k.current = k.next

	m.EnableIRQ()
	k.completeWait()
}
