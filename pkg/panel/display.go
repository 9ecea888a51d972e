package panel

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/robotalks/taskpanel/pkg/tasks"
)

// EmptyText is shown when there are no tasks.
const EmptyText = "No tasks available\nPress GET to load tasks"

// Display receives pre-formatted text.
type Display interface {
	// ShowTasks shows the task list.
	ShowTasks(text string)
	// ShowIndex shows the selected index.
	ShowIndex(text string)
}

// Flusher is optionally implemented by a Display which renders after
// both texts are updated.
type Flusher interface {
	Flush()
}

// View is a copy of the store for display.
type View struct {
	Tasks    []tasks.Task
	Selected int
}

// Render formats a view into a display.
func Render(d Display, v View) {
	d.ShowTasks(FormatTasks(v.Tasks))
	d.ShowIndex(strconv.Itoa(v.Selected))
	if f, ok := d.(Flusher); ok {
		f.Flush()
	}
}

// FormatTasks formats tasks one per line as "N. Title [List]".
func FormatTasks(list []tasks.Task) string {
	var buf bytes.Buffer
	for i, t := range list {
		if t.Valid {
			fmt.Fprintf(&buf, "%d. %s [%s]\n", i+1, t.Title, t.ListName)
		}
	}
	if buf.Len() == 0 {
		return EmptyText
	}
	return buf.String()
}

// ConsoleDisplay renders to a terminal, highlighting the selected line.
type ConsoleDisplay struct {
	Writer io.Writer

	tasks     string
	index     string
	highlight *color.Color
	lock      sync.Mutex
}

// NewConsoleDisplay creates a ConsoleDisplay.
func NewConsoleDisplay(w io.Writer) *ConsoleDisplay {
	return &ConsoleDisplay{
		Writer:    w,
		highlight: color.New(color.FgCyan, color.Bold),
	}
}

// ShowTasks implements Display.
func (d *ConsoleDisplay) ShowTasks(text string) {
	d.lock.Lock()
	d.tasks = text
	d.lock.Unlock()
}

// ShowIndex implements Display.
func (d *ConsoleDisplay) ShowIndex(text string) {
	d.lock.Lock()
	d.index = text
	d.lock.Unlock()
}

// Flush implements Flusher.
func (d *ConsoleDisplay) Flush() {
	d.lock.Lock()
	defer d.lock.Unlock()
	selected := d.index + ". "
	var buf bytes.Buffer
	for _, line := range strings.Split(strings.TrimRight(d.tasks, "\n"), "\n") {
		if strings.HasPrefix(line, selected) {
			d.highlight.Fprintln(&buf, "> "+line)
		} else {
			fmt.Fprintln(&buf, "  "+line)
		}
	}
	fmt.Fprintf(&buf, "[%s]\n", d.index)
	d.Writer.Write(buf.Bytes())
}
