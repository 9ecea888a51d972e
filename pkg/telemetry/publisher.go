// Package telemetry mirrors the task store of a panel to an MQTT broker.
package telemetry

import (
	"encoding/json"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"

	fx "github.com/robotalks/taskpanel/pkg/framework"
	"github.com/robotalks/taskpanel/pkg/tasks"
	"github.com/robotalks/taskpanel/pkg/transport/mqtt"
)

// Topic suffixes under the device.
const (
	TopicTasks = "tasks"
	TopicMeta  = "meta"
)

// LockTimeout bounds the wait for the store on each iteration.
const LockTimeout = 10 * time.Millisecond

// Broker is where snapshots are published.
type Broker interface {
	Pub(topic string, payload []byte, retain bool) error
}

// Publisher publishes store snapshots when the store changes.
type Publisher struct {
	Broker Broker
	Store  *tasks.Store
	Meta   Meta

	published bool
	version   uint64
}

// NewPublisher creates a Publisher.
func NewPublisher(broker Broker, store *tasks.Store, meta Meta) *Publisher {
	return &Publisher{Broker: broker, Store: store, Meta: meta}
}

// TasksTopic is the topic of snapshots of a device.
func TasksTopic(device string) string {
	return device + "/" + TopicTasks
}

// MetaTopic is the topic of the meta document of a device.
func MetaTopic(device string) string {
	return device + "/" + TopicMeta
}

// ConfigureWill makes the broker clear the retained meta document when
// the panel disconnects without notice, and names the client after the device.
func ConfigureWill(ep *mqtt.Endpoint, device string) {
	ep.Options.SetBinaryWill(ep.TopicPrefix+MetaTopic(device), nil, 1, true)
	if ep.Options.ClientID == "" {
		ep.Options.SetClientID(mqtt.AppID + ":" + device)
	}
}

// ClearMeta removes the retained meta document.
func (p *Publisher) ClearMeta() error {
	return p.Broker.Pub(MetaTopic(p.Meta.Device), nil, true)
}

// PublishMeta publishes the retained meta document.
func (p *Publisher) PublishMeta() error {
	payload, err := json.Marshal(&p.Meta)
	if err != nil {
		return err
	}
	return p.Broker.Pub(MetaTopic(p.Meta.Device), payload, true)
}

// OnConnect publishes the meta document, as a Client.OnConnect hook.
func (p *Publisher) OnConnect(*mqtt.Client) {
	if err := p.PublishMeta(); err != nil {
		glog.Warningf("publish meta failed: %v", err)
	}
}

// AddToLoop implements LoopAdder.
func (p *Publisher) AddToLoop(loop *fx.Loop) {
	loop.AddController(p)
}

// Control implements Controller.
func (p *Publisher) Control(cc fx.ControlContext) error {
	state, ok := p.Store.TryLockFor(LockTimeout)
	if !ok {
		return nil
	}
	version := state.Version()
	if p.published && version == p.version {
		p.Store.Unlock()
		return nil
	}
	snapshot := p.snapshot(state, cc.Time())
	p.Store.Unlock()

	payload, err := proto.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := p.Broker.Pub(TasksTopic(p.Meta.Device), payload, true); err != nil {
		// retried on the next iteration.
		glog.V(2).Infof("publish snapshot failed: %v", err)
		return nil
	}
	p.published, p.version = true, version
	return nil
}

func (p *Publisher) snapshot(state *tasks.State, at time.Time) *Snapshot {
	s := &Snapshot{
		Device:   p.Meta.Device,
		Version:  state.Version(),
		Selected: uint32(state.SelectedIndex()),
	}
	if ts, err := ptypes.TimestampProto(at); err == nil {
		s.Time = ts
	}
	for _, t := range state.Tasks() {
		s.Tasks = append(s.Tasks, &TaskEntry{
			ListNumber: uint32(t.ListNumber),
			TaskNumber: uint32(t.TaskNumber),
			Title:      t.Title,
			ListName:   t.ListName,
		})
	}
	return s
}

// TaskList converts the snapshot entries back to tasks.
func (m *Snapshot) TaskList() []tasks.Task {
	list := make([]tasks.Task, 0, len(m.Tasks))
	for _, e := range m.Tasks {
		list = append(list, tasks.Task{
			Title:      e.Title,
			ListName:   e.ListName,
			ListNumber: int(e.ListNumber),
			TaskNumber: int(e.TaskNumber),
			Valid:      true,
		})
	}
	return list
}
