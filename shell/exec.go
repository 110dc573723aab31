package shell

import (
	"unsafe"

	"rpiterm/hal"
)

// UserStackSize is the EL0 stack handed to an exec'd program.
const UserStackSize = 0x10000

// cmdExec runs an archive member at EL0 on a fresh stack from the session
// allocator. The image is used in place as one flat executable.
//
// EnterUser only comes back when the transition is refused. The stack is
// released on that path; otherwise it belongs to the program.
func cmdExec(s *Shell, args []byte) error {
	path, _ := splitSpace(args)
	image, ok := s.resolve("exec", path)
	if !ok {
		return nil
	}
	if s.Session == nil || s.CPU == nil {
		return errNoAllocator
	}

	_, stack, err := s.Session.Alloc(UserStackSize)
	if err != nil {
		return err
	}

	uc := hal.UserContext{
		Entry:    imageAddr(image),
		StackTop: stack + UserStackSize,
		SPSR:     0,
	}
	s.logf("shell: exec %s entry=%#x sp_el0=%#x", path, uc.Entry, uc.StackTop)
	if err := s.CPU.EnterUser(uc); err != nil {
		s.Session.Free(stack)
		return err
	}
	return nil
}

func imageAddr(image []byte) uintptr {
	if len(image) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&image[0]))
}
