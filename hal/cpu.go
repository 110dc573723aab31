package hal

import (
	"errors"
	"fmt"
)

// ErrBadEntry is returned when a user context cannot be entered: the entry
// point cannot hold an AArch64 instruction or the stack top is misaligned.
var ErrBadEntry = errors.New("bad user context")

func checkUserContext(uc UserContext) error {
	if uc.Entry == 0 || uc.Entry%4 != 0 {
		return fmt.Errorf("entry %#x: %w", uc.Entry, ErrBadEntry)
	}
	if uc.StackTop == 0 || uc.StackTop%16 != 0 {
		return fmt.Errorf("stack top %#x: %w", uc.StackTop, ErrBadEntry)
	}
	return nil
}
