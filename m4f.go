package rtos

// m4fOps implements the ARMv7E-M + FPU variant. The handler saves with
// vstmdb sp!, {s16-s31} followed by push {r4-r11}, so ascending from
// the switched-out stack pointer the image reads r4..r11, s16..s31,
// then the hardware frame.
type m4fOps struct{}

// m4fFrame is the integer software frame in ascending stack order,
// matching the push {r4-r11} store image.
var m4fFrame = [8]int{4, 5, 6, 7, 8, 9, 10, 11}

func (m4fOps) buildInitialFrame(m *Machine, top uint32, entry uint32) uint32 {
	sp := hwFrame(m, top, entry)
	// callee-saved FPU bank s16-s31, zeroed (put by ISR-SW)
	for i := 0; i < 16; i++ {
		sp -= 4
		m.WriteWord(sp, 0)
	}
	for i := len(m4fFrame) - 1; i >= 0; i-- {
		sp -= 4
		m.WriteWord(sp, uint32(m4fFrame[i])) // register-number seed (put by ISR-SW)
	}
	return sp
}

func (m4fOps) pendSV(k *Scheduler) {
	m := k.m
	m.DisableIRQ()
	m.isb()
	if k.current != nil {
		// vstmdb sp!, {s16-s31}
		for i := 31; i >= 16; i-- {
			m.push(m.s[i])
		}
		// push {r4-r11}
		for i := len(m4fFrame) - 1; i >= 0; i-- {
			m.push(m.regs[m4fFrame[i]])
		}
		m.dsb()
		m.isb()
		k.current.stackPointer = m.regs[rSP]
	}

	m.regs[rSP] = k.next.stackPointer
	m.dsb()
	m.isb()
	// pop {r4-r11}
	for _, r := range m4fFrame {
		m.regs[r] = m.pop()
	}
	// vldmia sp!, {s16-s31}
	for i := 16; i <= 31; i++ {
		m.s[i] = m.pop()
	}
	k.current = k.next

	m.EnableIRQ()
	m.dsb()
	m.isb()
	k.completeWait()
}
