package transport

import (
	"io"
	"net"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestBaudRate(t *testing.T) {
	baud, err := baudRate(url.Values{})
	require.NoError(t, err)
	require.Equal(t, DefaultBaudRate, baud)

	baud, err = baudRate(url.Values{"baud": {"9600"}})
	require.NoError(t, err)
	require.Equal(t, 9600, baud)

	for _, val := range []string{"fast", "0", "-1"} {
		_, err = baudRate(url.Values{"baud": {val}})
		require.Error(t, err, val)
	}
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("carrier-pigeon://coop")
	require.Error(t, err)
	_, err = Open("serial:///dev/null?baud=slow")
	require.Error(t, err)
	_, err = OpenSerial("", DefaultBaudRate)
	require.Error(t, err)
}

func TestOpenTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(conn, conn)
	}()

	conn, err := Open("tcp://" + ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("get\r\n"))
	require.NoError(t, err)
	buf := make([]byte, 5)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	require.Equal(t, "get\r\n", string(buf))
}

func TestOpenWebSocket(t *testing.T) {
	srv := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		io.Copy(conn, conn)
	}))
	defer srv.Close()

	conn, err := Open("ws://" + strings.TrimPrefix(srv.URL, "http://") + "/link")
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("status\r\n"))
	require.NoError(t, err)
	buf := make([]byte, 8)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	require.Equal(t, "status\r\n", string(buf))
}
