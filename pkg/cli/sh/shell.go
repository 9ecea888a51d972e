package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/taskpanel/pkg/link"
	"github.com/robotalks/taskpanel/pkg/panel"
)

// Shell provides ishell backed interactive shell standing in for the
// panel buttons.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell    *ishell.Shell
	Panel    *panel.Panel
	Receiver *link.Receiver
	Worker   *link.Worker
}

const (
	shellKey = "$shell"
	prompt   = "panel > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	commands []*ishell.Cmd
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(p *panel.Panel) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell: ishell.New(),
		Panel: p,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// WithLink attaches the link components for statistics.
func (s *Shell) WithLink(r *link.Receiver, w *link.Worker) *Shell {
	s.Receiver, s.Worker = r, w
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Output prints v as JSON when OutputJSON is set, otherwise text.
func (s *Shell) Output(c *ishell.Context, v interface{}, text string) {
	if !s.OutputJSON {
		c.Print(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// LinkStats collects the statistics of the link.
type LinkStats struct {
	link.Stats
	DecodeErrors uint64
}

// String implements fmt.Stringer.
func (st LinkStats) String() string {
	return fmt.Sprintf("bytes=%d frames=%d framing-errors=%d dropped=%d decode-errors=%d\n",
		st.Bytes, st.Frames, st.FramingErrors, st.Dropped, st.DecodeErrors)
}

// LinkStats returns statistics of the attached link components.
func (s *Shell) LinkStats() (st LinkStats) {
	if s.Receiver != nil {
		st.Stats = s.Receiver.Stats()
	}
	if s.Worker != nil {
		st.DecodeErrors = s.Worker.DecodeErrors()
	}
	return
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}
