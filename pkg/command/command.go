// Package command encodes the plain text commands sent to the companion device.
package command

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/taskpanel/pkg/tasks"
)

// Action is the verb of a command.
type Action string

// Actions understood by the companion device.
const (
	ActionGet    Action = "get"
	ActionFinish Action = "finish"
	ActionDelete Action = "delete"
	ActionStatus Action = "status"
	ActionHelp   Action = "help"
	ActionTest   Action = "test"
)

// LineTerminator ends every command on the wire.
const LineTerminator = "\r\n"

var (
	// ErrNoTask indicates a command requires a valid task.
	ErrNoTask = errors.New("no task selected")
	// ErrUnknownAction indicates the action is not recognized.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidRef indicates a malformed "list.task" argument.
	ErrInvalidRef = errors.New("invalid task reference")
)

// NeedsTask indicates the action takes a task argument.
func (a Action) NeedsTask() bool {
	return a == ActionFinish || a == ActionDelete
}

// Command is a parsed command line.
type Command struct {
	Action     Action
	ListNumber int
	TaskNumber int
}

// String encodes the command.
func (c Command) String() string {
	if c.Action.NeedsTask() {
		return fmt.Sprintf("%s %d.%d", c.Action, c.ListNumber, c.TaskNumber)
	}
	return string(c.Action)
}

// Encode formats a command for a task, e.g. "finish 2.3".
// task is ignored for actions without a task argument.
func Encode(action Action, task *tasks.Task) (string, error) {
	switch action {
	case ActionFinish, ActionDelete:
		if task == nil || !task.Valid {
			return "", ErrNoTask
		}
		return Command{Action: action, ListNumber: task.ListNumber, TaskNumber: task.TaskNumber}.String(), nil
	case ActionGet, ActionStatus, ActionHelp, ActionTest:
		return string(action), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

// ParseLine parses a command line received by a device.
func ParseLine(line string) (cmd Command, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return cmd, fmt.Errorf("%w: empty line", ErrUnknownAction)
	}
	cmd.Action = Action(strings.ToLower(fields[0]))
	switch cmd.Action {
	case ActionFinish, ActionDelete:
		if len(fields) != 2 {
			return cmd, ErrInvalidRef
		}
		cmd.ListNumber, cmd.TaskNumber, err = ParseRef(fields[1])
		return
	case ActionGet, ActionStatus, ActionHelp, ActionTest:
		return
	}
	return cmd, fmt.Errorf("%w: %q", ErrUnknownAction, fields[0])
}

// ParseRef parses "list.task".
func ParseRef(ref string) (list, task int, err error) {
	pos := strings.IndexByte(ref, '.')
	if pos < 0 {
		return 0, 0, ErrInvalidRef
	}
	if list, err = strconv.Atoi(ref[:pos]); err != nil || list < 1 {
		return 0, 0, ErrInvalidRef
	}
	if task, err = strconv.Atoi(ref[pos+1:]); err != nil || task < 1 {
		return 0, 0, ErrInvalidRef
	}
	return list, task, nil
}

// Sender writes commands to the transport.
type Sender struct {
	Writer io.Writer

	lock sync.Mutex
}

// NewSender creates a Sender.
func NewSender(w io.Writer) *Sender {
	return &Sender{Writer: w}
}

// Send writes cmd followed by the line terminator.
func (s *Sender) Send(cmd string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.Writer == nil {
		return io.ErrClosedPipe
	}
	n, err := io.WriteString(s.Writer, cmd+LineTerminator)
	if err != nil {
		glog.Errorf("send %q failed: %v", cmd, err)
		return err
	}
	glog.Infof("command sent: %s (bytes written: %d)", cmd, n)
	return nil
}
