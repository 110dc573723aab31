//go:build !tinygo

package hal

import "fmt"

// hostCPU validates the EL0 context and reports that the host cannot execute
// board code.
type hostCPU struct {
	log Logger
}

func (c *hostCPU) EnterUser(uc UserContext) error {
	if err := checkUserContext(uc); err != nil {
		return err
	}
	c.log.WriteLineString(fmt.Sprintf("cpu: el1 -> el0 elr=%#x sp_el0=%#x spsr=%#x", uc.Entry, uc.StackTop, uc.SPSR))
	return fmt.Errorf("enter el0 at %#x: %w", uc.Entry, ErrNotImplemented)
}
