// Package panel registers the panel commands of the shell.
package panel

import (
	"bytes"
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/taskpanel/pkg/cli/sh"
	"github.com/robotalks/taskpanel/pkg/panel"
)

// ButtonCmd creates a command pressing a panel button.
func ButtonCmd(button panel.Button, name string, aliases ...string) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    name,
		Aliases: aliases,
		Help:    "press " + string(button),
		Func: func(c *ishell.Context) {
			if err := sh.ShellFrom(c).Panel.Press(button); err != nil {
				c.Err(err)
			}
		},
	}
}

// TaskView is the JSON form of a panel view.
type TaskView struct {
	Selected int        `json:"selected"`
	Tasks    []TaskItem `json:"tasks"`
}

// TaskItem is a task in TaskView.
type TaskItem struct {
	Ref   string `json:"ref"`
	Title string `json:"title"`
	List  string `json:"list"`
}

// NewTaskView converts a panel view.
func NewTaskView(v panel.View) TaskView {
	tv := TaskView{Selected: v.Selected, Tasks: []TaskItem{}}
	for _, t := range v.Tasks {
		tv.Tasks = append(tv.Tasks, TaskItem{Ref: t.Ref(), Title: t.Title, List: t.ListName})
	}
	return tv
}

// FormatView prints the tasks with the selected one marked.
func FormatView(v panel.View) string {
	if len(v.Tasks) == 0 {
		return panel.EmptyText + "\n"
	}
	var w bytes.Buffer
	for i, t := range v.Tasks {
		mark := " "
		if i+1 == v.Selected {
			mark = "*"
		}
		fmt.Fprintf(&w, "%s %d. %s [%s] (%s)\n", mark, i+1, t.Title, t.ListName, t.Ref())
	}
	return w.String()
}

var (
	// GetCmd requests the task list.
	GetCmd = ButtonCmd(panel.ButtonGet, "get", "g")
	// UpCmd moves the selection up.
	UpCmd = ButtonCmd(panel.ButtonUp, "up", "u")
	// DownCmd moves the selection down.
	DownCmd = ButtonCmd(panel.ButtonDown, "down", "n")
	// FinishCmd finishes the selected task.
	FinishCmd = ButtonCmd(panel.ButtonFinish, "finish", "f")
	// DeleteCmd deletes the selected task.
	DeleteCmd = ButtonCmd(panel.ButtonDelete, "delete", "rm")

	// ShowCmd prints the tasks.
	ShowCmd = &ishell.Cmd{
		Name:    "show",
		Aliases: []string{"ls"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			view, err := s.Panel.Snapshot()
			if err != nil {
				c.Err(err)
				return
			}
			s.Output(c, NewTaskView(view), FormatView(view))
		},
	}

	// StatsCmd prints link statistics.
	StatsCmd = &ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			st := s.LinkStats()
			s.Output(c, st, st.String())
		},
	}
)

func init() {
	sh.AddCmds(GetCmd, UpCmd, DownCmd, FinishCmd, DeleteCmd, ShowCmd, StatsCmd)
}
