package telemetry

import (
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/timestamp"
)

// TaskEntry is a task in a Snapshot.
type TaskEntry struct {
	ListNumber uint32 `protobuf:"varint,1,opt,name=list_number,proto3" json:"list_number,omitempty"`
	TaskNumber uint32 `protobuf:"varint,2,opt,name=task_number,proto3" json:"task_number,omitempty"`
	Title      string `protobuf:"bytes,3,opt,name=title,proto3" json:"title,omitempty"`
	ListName   string `protobuf:"bytes,4,opt,name=list_name,proto3" json:"list_name,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *TaskEntry) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TaskEntry) Reset() { *m = TaskEntry{} }

// String implements proto.Message.
func (m *TaskEntry) String() string { return proto.CompactTextString(m) }

// Snapshot is the published state of a panel.
type Snapshot struct {
	Device   string               `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	Version  uint64               `protobuf:"varint,2,opt,name=version,proto3" json:"version,omitempty"`
	Selected uint32               `protobuf:"varint,3,opt,name=selected,proto3" json:"selected,omitempty"`
	Tasks    []*TaskEntry         `protobuf:"bytes,4,rep,name=tasks,proto3" json:"tasks,omitempty"`
	Time     *timestamp.Timestamp `protobuf:"bytes,5,opt,name=time,proto3" json:"time,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Snapshot) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Snapshot) Reset() { *m = Snapshot{} }

// String implements proto.Message.
func (m *Snapshot) String() string { return proto.CompactTextString(m) }

// DecodeSnapshot decodes a payload published on the tasks topic.
func DecodeSnapshot(payload []byte) (*Snapshot, error) {
	var m Snapshot
	if err := proto.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Meta is the retained description of a panel.
type Meta struct {
	Device   string `json:"device"`
	App      string `json:"app"`
	Link     string `json:"link,omitempty"`
	Capacity int    `json:"capacity"`
}
