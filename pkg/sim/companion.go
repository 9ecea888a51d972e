// Package sim simulates the companion device holding the task lists.
package sim

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/taskpanel/pkg/command"
	"github.com/robotalks/taskpanel/pkg/link"
	"github.com/robotalks/taskpanel/pkg/tasks"
)

// MaxLists is the number of lists addressable by a single digit.
const MaxLists = 9

// HelpText is the payload of the HELP message.
const HelpText = "get; finish L.T; delete L.T; status; help; test"

// DefaultTaskList seeds a simulator.
const DefaultTaskList = "1.Work,1.1.Review pull requests,1.2.Write report,1.3.Call Bob," +
	"2.Home,2.1.Buy milk,2.2.Clean kitchen," +
	"3.Errands,3.1.Post office"

// List is a task list of the companion.
type List struct {
	Number int
	Name   string
	Tasks  []tasks.Task
}

// Companion answers command lines with packets.
type Companion struct {
	lists []*List
	lock  sync.Mutex
}

// New creates a Companion loaded from a task list payload.
func New(text string) *Companion {
	c := &Companion{}
	c.Load(text)
	return c
}

// Load replaces the lists with those of a task list payload.
func (c *Companion) Load(text string) {
	var lists []*List
	byNumber := make(map[int]*List)
	var valid []string
	for _, token := range strings.Split(text, tasks.TokenDelimiter) {
		token = strings.TrimSpace(token)
		if !link.IsValidData(token) {
			glog.Warningf("skip token %q: not allowed in a packet", token)
			continue
		}
		valid = append(valid, token)
	}
	text = strings.Join(valid, tasks.TokenDelimiter)
	for _, token := range valid {
		if len(token) < 3 || token[1] != '.' || strings.Count(token, ".") != 1 {
			continue
		}
		num := int(token[0] - '0')
		if num < 1 || num > MaxLists || byNumber[num] != nil {
			continue
		}
		l := &List{Number: num, Name: token[2:]}
		byNumber[num] = l
		lists = append(lists, l)
	}
	for _, t := range tasks.Parse(text, MaxLists*tasks.MaxTasks) {
		l := byNumber[t.ListNumber]
		if l == nil {
			l = &List{Number: t.ListNumber}
			byNumber[t.ListNumber] = l
			lists = append(lists, l)
		}
		t.ListName = l.Name
		l.Tasks = append(l.Tasks, t)
	}
	c.lock.Lock()
	c.lists = lists
	c.lock.Unlock()
}

// AddTask appends a task to a list, creating the list when needed.
func (c *Companion) AddTask(listNumber int, listName, title string) (tasks.Task, error) {
	if listNumber < 1 || listNumber > MaxLists {
		return tasks.Task{}, fmt.Errorf("invalid list number %d", listNumber)
	}
	for _, text := range []string{listName, title} {
		if strings.Contains(text, tasks.TokenDelimiter) || !link.IsValidData(text) {
			return tasks.Task{}, fmt.Errorf("%q must not contain %q, %q or packet markers", text, tasks.TokenDelimiter, link.FieldDelimiter)
		}
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	var l *List
	for _, item := range c.lists {
		if item.Number == listNumber {
			l = item
			break
		}
	}
	if l == nil {
		l = &List{Number: listNumber, Name: listName}
		c.lists = append(c.lists, l)
	}
	next := 1
	for _, t := range l.Tasks {
		if t.TaskNumber >= next {
			next = t.TaskNumber + 1
		}
	}
	t := tasks.Task{Title: title, ListName: l.Name, ListNumber: l.Number, TaskNumber: next, Valid: true}
	l.Tasks = append(l.Tasks, t)
	return t, nil
}

// Count returns the total number of tasks.
func (c *Companion) Count() (n int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, l := range c.lists {
		n += len(l.Tasks)
	}
	return
}

// Encode returns the task list payload, or NO_TASKS. Tokens which would
// make the TASKS packet exceed a frame slot are left out.
func (c *Companion) Encode() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	var tokens []string
	size, limit := 0, link.MaxDataFor(link.TypeTasks)
	add := func(token string) bool {
		if size+len(token)+1 > limit+1 {
			return false
		}
		tokens, size = append(tokens, token), size+len(token)+1
		return true
	}
lists:
	for _, l := range c.lists {
		if len(l.Tasks) == 0 {
			continue
		}
		if !add(fmt.Sprintf("%d.%s", l.Number, l.Name)) {
			break
		}
		for _, t := range l.Tasks {
			if !add(fmt.Sprintf("%d.%d.%s", l.Number, t.TaskNumber, t.Title)) {
				break lists
			}
		}
	}
	if len(tokens) == 0 {
		return tasks.NoTasks
	}
	return strings.Join(tokens, tasks.TokenDelimiter)
}

func (c *Companion) remove(listNumber, taskNumber int) (tasks.Task, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, l := range c.lists {
		if l.Number != listNumber {
			continue
		}
		for i, t := range l.Tasks {
			if t.TaskNumber == taskNumber {
				l.Tasks = append(l.Tasks[:i], l.Tasks[i+1:]...)
				return t, true
			}
		}
	}
	return tasks.Task{}, false
}

// Handle executes a command line and returns the reply.
func (c *Companion) Handle(line string) *link.Message {
	cmd, err := command.ParseLine(line)
	if err != nil {
		return link.NewReply(link.TypeError, err.Error())
	}
	switch cmd.Action {
	case command.ActionGet:
		return link.NewReply(link.TypeTasks, c.Encode())
	case command.ActionFinish, command.ActionDelete:
		t, ok := c.remove(cmd.ListNumber, cmd.TaskNumber)
		if !ok {
			return link.NewReply(link.TypeError, fmt.Sprintf("task %d.%d not found", cmd.ListNumber, cmd.TaskNumber))
		}
		verb := "finished"
		if cmd.Action == command.ActionDelete {
			verb = "deleted"
		}
		return link.NewReply(link.TypeResult, fmt.Sprintf("task %s %s: %s", t.Ref(), verb, t.Title))
	case command.ActionStatus:
		c.lock.Lock()
		lists := len(c.lists)
		c.lock.Unlock()
		return link.NewReply(link.TypeStatus, fmt.Sprintf("lists=%d tasks=%d", lists, c.Count()))
	case command.ActionHelp:
		return link.NewReply(link.TypeHelp, HelpText)
	case command.ActionTest:
		return link.NewReply(link.TypeTest, "ok")
	}
	return link.NewReply(link.TypeError, "unsupported command "+string(cmd.Action))
}

// Serve reads command lines from rw and writes a reply packet for each,
// until the reader fails or reaches EOF.
func (c *Companion) Serve(rw io.ReadWriter) error {
	scanner := bufio.NewScanner(rw)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		reply := c.Handle(line)
		glog.Infof("%q -> %s", line, reply.Type)
		if _, err := reply.WriteTo(rw); err != nil {
			return err
		}
	}
	return scanner.Err()
}
