package shell

import "errors"

var errNoTimer = errors.New("timer not available")

const alertSeconds = 2

// cmdSetTimeout arms a one-shot timer printing the message:
// setTimeout MESSAGE SECONDS.
func cmdSetTimeout(s *Shell, args []byte) error {
	if s.System == nil {
		return errNoTimer
	}
	msg, rest := splitSpace(args)
	sec, _ := splitSpace(rest)
	text := string(msg) + "\r\n"
	return s.System.AddTimer(func(string) { s.print(text) }, string(msg), atoi(sec))
}

func cmdSet2sAlert(s *Shell, _ []byte) error {
	if s.System == nil {
		return errNoTimer
	}
	return s.System.AddTimer(s.alert, "2sAlert", alertSeconds)
}

// alert prints the uptime and re-arms itself.
func (s *Shell) alert(arg string) {
	s.printf("[%s] %d seconds after booting\r\n", arg, s.System.Seconds())
	if err := s.System.AddTimer(s.alert, arg, alertSeconds); err != nil {
		s.logf("shell: %s: %v", arg, err)
	}
}
