// Package tasks holds the task list mirrored from the companion device.
package tasks

import "fmt"

// Limits of a task collection.
const (
	// MaxTasks is the default capacity of a Store.
	MaxTasks = 20
	// MaxTitleLen is the maximum length of a task title in bytes.
	MaxTitleLen = 127
	// MaxListNameLen is the maximum length of a list name in bytes.
	MaxListNameLen = 63
)

// Task is a single entry of a task list.
type Task struct {
	Title      string
	ListName   string
	ListNumber int
	TaskNumber int
	Valid      bool
}

// Ref returns the "list.task" reference used in commands.
func (t Task) Ref() string {
	return fmt.Sprintf("%d.%d", t.ListNumber, t.TaskNumber)
}

// String implements fmt.Stringer.
func (t Task) String() string {
	return fmt.Sprintf("%s %s [%s]", t.Ref(), t.Title, t.ListName)
}
