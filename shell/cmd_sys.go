package shell

import (
	"rpiterm/hal"
	"rpiterm/mbox"
)

// rebootCountdown is the watchdog countdown written by reboot, in watchdog
// ticks.
const rebootCountdown = 5

func cmdHello(s *Shell, _ []byte) error {
	s.print("Hello World!\r\n")
	return nil
}

func cmdHelp(s *Shell, _ []byte) error {
	writeHelp(s.Out, Descriptors)
	return nil
}

// cmdInfo prints the board revision and ARM memory split. A failed mailbox
// call omits its block without a message.
func cmdInfo(s *Shell, _ []byte) error {
	if s.Mailbox == nil {
		return nil
	}
	if rev, ok := mbox.BoardRevision(s.Mailbox); ok {
		s.printf("Hardware Revision\t: %08x%08x\r\n", rev[1], rev[0])
	}
	if base, size, ok := mbox.ARMMemory(s.Mailbox); ok {
		s.printf("ARM Memory Base Address\t: %08x\r\n", base)
		s.printf("ARM Memory Size\t\t: %08x\r\n", size)
	}
	return nil
}

// cmdReboot arms a full reset through the PM watchdog. Nothing is expected
// to run after the countdown expires.
func cmdReboot(s *Shell, _ []byte) error {
	s.print("Reboot in 5 seconds ...\r\n\r\n")
	s.logf("shell: reboot requested, watchdog countdown %d", rebootCountdown)
	s.Registers.Write32(hal.PMRSTC, hal.PMPassword|hal.PMRSTCFullReset)
	s.Registers.Write32(hal.PMWDOG, hal.PMPassword|rebootCountdown)
	return nil
}
