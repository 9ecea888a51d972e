package mqtt

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamRead(t *testing.T) {
	s := newStream(PanelTopics("desk"), nil)
	payload := []byte("<PKT_START>TYPE:TEST")
	s.receive("desk/rx", payload)
	payload[0] = 'x'
	s.receive("desk/rx", []byte("|DATA:ok"))

	buf := make([]byte, 8)
	var out []byte
	for len(out) < 28 {
		n, err := s.Read(buf)
		require.NoError(t, err)
		out = append(out, buf[:n]...)
	}
	require.Equal(t, "<PKT_START>TYPE:TEST|DATA:ok", string(out))

	require.NoError(t, s.Close())
	n, err := s.Read(buf)
	require.Zero(t, n)
	require.Equal(t, io.EOF, err)
}

func TestStreamWrite(t *testing.T) {
	var published [][]byte
	s := newStream(PanelTopics("desk"), func(payload []byte) error {
		published = append(published, payload)
		return nil
	})
	msg := []byte("get\r\n")
	n, err := s.Write(msg)
	require.NoError(t, err)
	require.Equal(t, len(msg), n)
	msg[0] = 'x'
	require.Equal(t, [][]byte{[]byte("get\r\n")}, published)

	failure := errors.New("broker gone")
	s.publish = func([]byte) error { return failure }
	_, err = s.Write([]byte("get\r\n"))
	require.Equal(t, failure, err)

	s.Close()
	_, err = s.Write([]byte("get\r\n"))
	require.Equal(t, io.ErrClosedPipe, err)
}

func TestDefaultDeviceID(t *testing.T) {
	id := DefaultDeviceID()
	require.NotEmpty(t, id)
	require.Equal(t, id, DefaultDeviceID())
}
