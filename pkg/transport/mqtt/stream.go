package mqtt

import (
	"io"
	"os"
	"sync"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID salts the machine ID used as the default device ID.
const AppID = "taskpanel"

// RecvBacklog is the number of inbound payloads buffered ahead of Read.
const RecvBacklog = 16

// DefaultDeviceID returns an ID derived from the machine ID, or the host
// name when the machine ID is unavailable.
func DefaultDeviceID() string {
	if id, err := machineid.ProtectedID(AppID); err == nil {
		return id[:12]
	}
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return "panel"
}

// Topics names the pair of topics carrying a stream.
type Topics struct {
	Read  string
	Write string
}

// PanelTopics are the topics used by the panel: it reads device/rx and
// writes device/tx.
func PanelTopics(device string) Topics {
	return Topics{Read: device + "/rx", Write: device + "/tx"}
}

// CompanionTopics are the reverse of PanelTopics.
func CompanionTopics(device string) Topics {
	return Topics{Read: device + "/tx", Write: device + "/rx"}
}

// Stream is an io.ReadWriteCloser over a pair of MQTT topics. Payloads
// received on the read topic are concatenated into the byte stream and each
// Write is published as one payload.
type Stream struct {
	Topics Topics

	publish func([]byte) error
	recvCh  chan []byte
	pending []byte
	sub     *Subscription
	owned   io.Closer

	closeOnce sync.Once
	closed    chan struct{}
}

func newStream(topics Topics, publish func([]byte) error) *Stream {
	return &Stream{
		Topics:  topics,
		publish: publish,
		recvCh:  make(chan []byte, RecvBacklog),
		closed:  make(chan struct{}),
	}
}

// NewStream creates a Stream on a connected client.
func NewStream(c *Client, topics Topics) *Stream {
	s := newStream(topics, func(payload []byte) error {
		return c.Pub(topics.Write, payload, false)
	})
	s.sub = c.Sub(topics.Read, s.receive)
	return s
}

// DialStream connects to the broker at brokerURL and opens the panel side
// stream of the device named in the URL, or DefaultDeviceID.
func DialStream(brokerURL string) (*Stream, error) {
	ep, err := ParseURL(brokerURL)
	if err != nil {
		return nil, err
	}
	device := ep.Device
	if device == "" {
		device = DefaultDeviceID()
	}
	c, err := Dial(ep)
	if err != nil {
		return nil, err
	}
	s := NewStream(c, PanelTopics(device))
	s.owned = c
	glog.Infof("mqtt stream %s%s <-> %s%s", c.TopicPrefix, s.Topics.Read, c.TopicPrefix, s.Topics.Write)
	return s, nil
}

func (s *Stream) receive(_ string, payload []byte) {
	buf := make([]byte, len(payload))
	copy(buf, payload)
	select {
	case s.recvCh <- buf:
	case <-s.closed:
	}
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		select {
		case buf := <-s.recvCh:
			s.pending = buf
		case <-s.closed:
			return 0, io.EOF
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, io.ErrClosedPipe
	default:
	}
	payload := make([]byte, len(p))
	copy(payload, p)
	if err := s.publish(payload); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer.
func (s *Stream) Close() (err error) {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.sub != nil {
			err = s.sub.Close()
		}
		if s.owned != nil {
			s.owned.Close()
		}
	})
	return
}
