package lib

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCommand is returned when a remote or serial command name is not recognised
var ErrUnknownCommand = errors.New("unknown command")

// Command is an action on the paint session, from the keyboard, the pen trigger or the remote
type Command string

const (
	CmdNone    Command = ""
	CmdRed     Command = "red"
	CmdGreen   Command = "green"
	CmdBlue    Command = "blue"
	CmdBigger  Command = "bigger"
	CmdSmaller Command = "smaller"
	CmdClear   Command = "clear"
	CmdSave    Command = "save"
	CmdPDF     Command = "pdf"
	CmdQuit    Command = "quit"
	CmdPenDown Command = "pen_down"
	CmdPenUp   Command = "pen_up"
)

const keyEscape = 27

// CommandForKey maps a key code returned by gocv.Window.WaitKey to a command
func CommandForKey(key int) Command {
	if key < 0 {
		return CmdNone
	}

	switch key & 0xFF {
	case 'r', 'R':
		return CmdRed
	case 'g', 'G':
		return CmdGreen
	case 'b', 'B':
		return CmdBlue
	case '+', '=':
		return CmdBigger
	case '-', '_':
		return CmdSmaller
	case 'c', 'C':
		return CmdClear
	case 'w', 'W':
		return CmdSave
	case 'p', 'P':
		return CmdPDF
	case 'q', 'Q', keyEscape:
		return CmdQuit
	}
	return CmdNone
}

// ParseCommand accepts a command name ("red", "save", ...) or a single key character
func ParseCommand(s string) (Command, error) {
	s = strings.TrimSpace(s)
	if len(s) == 1 {
		if cmd := CommandForKey(int(s[0])); cmd != CmdNone {
			return cmd, nil
		}
	}

	cmd := Command(strings.ToLower(s))
	switch cmd {
	case CmdRed, CmdGreen, CmdBlue, CmdBigger, CmdSmaller, CmdClear, CmdSave, CmdPDF, CmdQuit, CmdPenDown, CmdPenUp:
		return cmd, nil
	}
	return CmdNone, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}
