package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/taskpanel/pkg/framework"
	"github.com/robotalks/taskpanel/pkg/sim"
	"github.com/robotalks/taskpanel/pkg/transport/mqtt"
)

var (
	listenAddr = ":7000"
	wsAddr     string
	mqttURL    string
	taskList   = sim.DefaultTaskList
	taskFile   string
)

func init() {
	flag.StringVar(&listenAddr, "listen", listenAddr, "TCP address to serve, empty to disable.")
	flag.StringVar(&wsAddr, "ws", wsAddr, "HTTP address serving the websocket link at /link.")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL, e.g. mqtt://host:1883/taskpanel/?device=ID")
	flag.StringVar(&taskList, "tasks", taskList, "Initial task list.")
	flag.StringVar(&taskFile, "tasks-file", taskFile, "File containing the initial task list.")
}

func serveTCP(c *sim.Companion) fx.RunFunc {
	return func(ctx context.Context) error {
		ln, err := net.Listen("tcp", listenAddr)
		if err != nil {
			return err
		}
		glog.Infof("serving on %s", ln.Addr())
		return fx.RunWithContextCloser(ctx, ln, func() error {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return err
				}
				go func() {
					defer conn.Close()
					glog.Infof("panel connected from %s", conn.RemoteAddr())
					if err := c.Serve(conn); err != nil {
						glog.Warningf("%s: %v", conn.RemoteAddr(), err)
					}
				}()
			}
		})
	}
}

func serveWebSocket(c *sim.Companion) fx.RunFunc {
	return func(ctx context.Context) error {
		mux := http.NewServeMux()
		mux.Handle("/link", websocket.Handler(func(conn *websocket.Conn) {
			conn.PayloadType = websocket.BinaryFrame
			if err := c.Serve(conn); err != nil {
				glog.Warningf("websocket: %v", err)
			}
		}))
		srv := &http.Server{Addr: wsAddr, Handler: mux}
		glog.Infof("serving websocket on %s/link", wsAddr)
		return fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
	}
}

func serveMQTT(c *sim.Companion) fx.RunFunc {
	return func(ctx context.Context) error {
		ep, err := mqtt.ParseURL(mqttURL)
		if err != nil {
			return err
		}
		device := ep.Device
		if device == "" {
			device = mqtt.DefaultDeviceID()
		}
		client, err := mqtt.Dial(ep)
		if err != nil {
			return err
		}
		defer client.Close()
		stream := mqtt.NewStream(client, mqtt.CompanionTopics(device))
		glog.Infof("serving MQTT device %s", device)
		return fx.RunWithContextCloser(ctx, stream, func() error {
			return c.Serve(stream)
		})
	}
}

func main() {
	flag.Parse()

	if taskFile != "" {
		data, err := os.ReadFile(taskFile)
		if err != nil {
			glog.Exit(err)
		}
		taskList = string(data)
	}
	companion := sim.New(taskList)
	glog.Infof("loaded %d tasks", companion.Count())

	runner := fx.NewRunner().HandleSignals()
	if listenAddr != "" {
		runner.Go(fx.NamedRun("tcp", serveTCP(companion)))
	}
	if wsAddr != "" {
		runner.Go(fx.NamedRun("websocket", serveWebSocket(companion)))
	}
	if mqttURL != "" {
		runner.Go(fx.NamedRun("mqtt", serveMQTT(companion)))
	}
	if len(runner.Runners) == 0 {
		glog.Exit("nothing to serve")
	}
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
