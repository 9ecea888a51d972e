// Package panel implements the controls of the task panel: the buttons,
// the display refresh and the handling of messages from the companion device.
package panel

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/taskpanel/pkg/command"
	fx "github.com/robotalks/taskpanel/pkg/framework"
	"github.com/robotalks/taskpanel/pkg/link"
	"github.com/robotalks/taskpanel/pkg/tasks"
)

// Timeouts.
const (
	// ButtonLockTimeout bounds the wait for the store when a button is pressed.
	ButtonLockTimeout = 100 * time.Millisecond
	// RefreshLockTimeout bounds the wait for the store in the refresh loop.
	RefreshLockTimeout = 10 * time.Millisecond
	// ResultRefreshDelay is the delay before requesting the task list after a result.
	ResultRefreshDelay = 500 * time.Millisecond
)

// ErrBusy indicates a button press is dropped because the store is busy.
var ErrBusy = errors.New("panel busy")

// Button identifies a panel button.
type Button string

// Panel buttons.
const (
	ButtonGet    Button = "GET"
	ButtonUp     Button = "UP"
	ButtonDown   Button = "DOWN"
	ButtonFinish Button = "FINISH"
	ButtonDelete Button = "DELETE"
)

// Panel connects the task store with the device link and the display.
type Panel struct {
	Store   *tasks.Store
	Sender  *command.Sender
	Display Display

	// RefreshOnResult requests the task list after an operation result.
	RefreshOnResult    bool
	ResultRefreshDelay time.Duration

	loopCtl fx.LoopControl

	// touched by the refresh controller only.
	shown        bool
	shownVersion uint64
}

// New creates a Panel.
func New(store *tasks.Store, sender *command.Sender, display Display) *Panel {
	return &Panel{
		Store:              store,
		Sender:             sender,
		Display:            display,
		ResultRefreshDelay: ResultRefreshDelay,
	}
}

// Press handles a button.
func (p *Panel) Press(b Button) error {
	switch b {
	case ButtonGet:
		return p.Get()
	case ButtonUp:
		return p.Up()
	case ButtonDown:
		return p.Down()
	case ButtonFinish:
		return p.Finish()
	case ButtonDelete:
		return p.Delete()
	}
	return errors.New("unknown button " + string(b))
}

// Up moves the selection to the previous task.
func (p *Panel) Up() error {
	return p.moveSelection(-1)
}

// Down moves the selection to the next task.
func (p *Panel) Down() error {
	return p.moveSelection(1)
}

// Finish asks the device to finish the selected task.
func (p *Panel) Finish() error {
	return p.sendForSelected(command.ActionFinish)
}

// Delete asks the device to delete the selected task.
func (p *Panel) Delete() error {
	return p.sendForSelected(command.ActionDelete)
}

// Get asks the device for the task list.
func (p *Panel) Get() error {
	glog.Info("GET pressed")
	return p.Sender.Send(string(command.ActionGet))
}

func (p *Panel) moveSelection(delta int) error {
	var changed bool
	if err := p.Store.View(ButtonLockTimeout, func(s *tasks.State) {
		changed = s.MoveSelection(delta)
	}); err != nil {
		return ErrBusy
	}
	if changed {
		p.triggerRefresh()
	}
	return nil
}

func (p *Panel) sendForSelected(action command.Action) error {
	var (
		cmd   string
		index int
		err   error
	)
	if viewErr := p.Store.View(ButtonLockTimeout, func(s *tasks.State) {
		index = s.SelectedIndex()
		task, ok := s.Selected()
		if !ok {
			err = command.ErrNoTask
			return
		}
		cmd, err = command.Encode(action, &task)
	}); viewErr != nil {
		return ErrBusy
	}
	if err != nil {
		return err
	}
	// the store is released before touching the transport.
	glog.Infof("%s task %d: %s", action, index, cmd)
	return p.Sender.Send(cmd)
}

// Handler returns the dispatcher for messages from the device.
func (p *Panel) Handler() *link.Mux {
	return link.NewMux().
		HandleFunc(link.TypeTasks, p.handleTasks).
		HandleFunc(link.TypeResult, p.handleResult).
		Handle(link.TypeError, link.LogError("Error")).
		Handle(link.TypeStatus, link.LogInfo("Status")).
		Handle(link.TypeHelp, link.LogInfo("Help")).
		Handle(link.TypeTest, link.LogInfo("Test response"))
}

func (p *Panel) handleTasks(ctx context.Context, msg *link.Message) {
	var count int
	p.Store.Update(func(s *tasks.State) {
		count = s.ReplaceAll(tasks.Parse(msg.Data, s.Capacity()))
	})
	glog.Infof("task list received: %d tasks", count)
	p.triggerRefresh()
}

func (p *Panel) handleResult(ctx context.Context, msg *link.Message) {
	glog.Infof("Operation result: %s", msg.Data)
	if !p.RefreshOnResult {
		return
	}
	time.AfterFunc(p.ResultRefreshDelay, func() {
		if err := p.Get(); err != nil {
			glog.Warningf("refresh after result failed: %v", err)
		}
	})
}

func (p *Panel) triggerRefresh() {
	if ctl := p.loopCtl; ctl != nil {
		ctl.TriggerNext()
	}
}

// AddToLoop implements LoopAdder.
func (p *Panel) AddToLoop(loop *fx.Loop) {
	p.loopCtl = loop
	loop.AddController(p)
}

// Control implements Controller, refreshing the display when the store changed.
func (p *Panel) Control(cc fx.ControlContext) error {
	p.Refresh()
	return nil
}

// Refresh pushes the store to the display if it changed since the last
// refresh. It reports false if the store was busy.
func (p *Panel) Refresh() bool {
	state, ok := p.Store.TryLockFor(RefreshLockTimeout)
	if !ok {
		return false
	}
	version := state.Version()
	if p.shown && version == p.shownVersion {
		p.Store.Unlock()
		return true
	}
	view := View{Tasks: state.Tasks(), Selected: state.SelectedIndex()}
	p.Store.Unlock()

	p.shown, p.shownVersion = true, version
	if d := p.Display; d != nil {
		Render(d, view)
	}
	return true
}

// Snapshot returns the tasks and the selection.
func (p *Panel) Snapshot() (view View, err error) {
	err = p.Store.View(ButtonLockTimeout, func(s *tasks.State) {
		view = View{Tasks: s.Tasks(), Selected: s.SelectedIndex()}
	})
	return
}
