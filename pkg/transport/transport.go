// Package transport opens the byte stream to the companion device.
package transport

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"go.bug.st/serial"
	"golang.org/x/net/websocket"

	"github.com/robotalks/taskpanel/pkg/transport/mqtt"
)

// DefaultBaudRate is the serial speed when the URL has no baud parameter.
const DefaultBaudRate = 115200

// Open opens a link by URL:
//
//	serial:///dev/ttyUSB0?baud=115200 or /dev/ttyUSB0
//	tcp://host:port
//	ws://host:port/path, wss://host:port/path
//	mqtt://host:port/prefix?device=ID
func Open(linkURL string) (io.ReadWriteCloser, error) {
	if !strings.Contains(linkURL, "://") {
		return OpenSerial(linkURL, DefaultBaudRate)
	}
	u, err := url.Parse(linkURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "serial":
		baud, err := baudRate(u.Query())
		if err != nil {
			return nil, err
		}
		return OpenSerial(u.Host+u.Path, baud)
	case "tcp":
		glog.Infof("dialing %s", u.Host)
		return net.Dial("tcp", u.Host)
	case "ws", "wss":
		return OpenWebSocket(u)
	case "mqtt", "mqtts":
		s, err := mqtt.DialStream(linkURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported link scheme %q", u.Scheme)
}

// OpenSerial opens a serial port in 8N1 mode.
func OpenSerial(port string, baud int) (io.ReadWriteCloser, error) {
	if port == "" {
		return nil, fmt.Errorf("serial port not specified")
	}
	glog.Infof("opening %s at %d baud", port, baud)
	return serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// OpenWebSocket dials a websocket carrying binary frames.
func OpenWebSocket(u *url.URL) (io.ReadWriteCloser, error) {
	origin := &url.URL{Scheme: "http", Host: u.Host}
	if u.Scheme == "wss" {
		origin.Scheme = "https"
	}
	conf, err := websocket.NewConfig(u.String(), origin.String())
	if err != nil {
		return nil, err
	}
	glog.Infof("dialing %s", u)
	conn, err := websocket.DialConfig(conf)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

func baudRate(query url.Values) (int, error) {
	val := query.Get("baud")
	if val == "" {
		return DefaultBaudRate, nil
	}
	baud, err := strconv.Atoi(val)
	if err != nil || baud <= 0 {
		return 0, fmt.Errorf("invalid baud rate %q", val)
	}
	return baud, nil
}
