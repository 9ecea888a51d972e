package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/taskpanel/pkg/cli/sh"
	"github.com/robotalks/taskpanel/pkg/command"
	"github.com/robotalks/taskpanel/pkg/config"
	fx "github.com/robotalks/taskpanel/pkg/framework"
	"github.com/robotalks/taskpanel/pkg/link"
	"github.com/robotalks/taskpanel/pkg/panel"
	"github.com/robotalks/taskpanel/pkg/tasks"
	"github.com/robotalks/taskpanel/pkg/telemetry"
	"github.com/robotalks/taskpanel/pkg/transport/mqtt"

	_ "github.com/robotalks/taskpanel/pkg/cli/cmds/panel"
)

const appName = "taskpanel"

var (
	showDisplay       = true
	telemetryInterval = time.Second
)

func init() {
	config.SetupFlags()
	flag.BoolVar(&showDisplay, "display", showDisplay, "Print the display on changes.")
	flag.DurationVar(&telemetryInterval, "telemetry-interval", telemetryInterval, "Telemetry publish interval.")
}

type telemetryCloser struct {
	client *mqtt.Client
	pub    *telemetry.Publisher
}

func (c *telemetryCloser) Close() error {
	if c.client.IsConnected() {
		c.pub.ClearMeta()
	}
	return c.client.Close()
}

func startTelemetry(conf *config.Config, store *tasks.Store, loop *fx.Loop) io.Closer {
	ep, err := mqtt.ParseURL(conf.MQTTBrokerURL)
	if err != nil {
		glog.Exitf("invalid MQTT URL: %v", err)
	}
	device := conf.Device()
	telemetry.ConfigureWill(ep, device)
	pub := telemetry.NewPublisher(nil, store, telemetry.Meta{
		Device:   device,
		App:      appName,
		Link:     conf.Link,
		Capacity: conf.Capacity,
	})
	client := mqtt.NewClient(ep.Options, ep.TopicPrefix)
	client.OnConnect = pub.OnConnect
	pub.Broker = client
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		glog.Warningf("telemetry disabled: %v", token.Error())
		return client
	}
	closer := &telemetryCloser{client: client, pub: pub}
	glog.Infof("telemetry on %s%s", ep.TopicPrefix, telemetry.TasksTopic(pub.Meta.Device))
	telemetryLoop := &fx.Loop{Interval: telemetryInterval}
	telemetryLoop.Add(pub)
	loop.AddRunnable(fx.NamedRun("telemetry", telemetryLoop))
	return closer
}

func main() {
	flag.Parse()

	conf := config.Default()
	if err := conf.Validate(); err != nil {
		glog.Exit(err)
	}
	glog.V(2).Infof("config:\n%s", conf)

	conn, err := conf.OpenLink()
	if err != nil {
		glog.Exitf("open %s failed: %v", conf.Link, err)
	}
	defer conn.Close()

	store := conf.NewStore()
	var display panel.Display
	if showDisplay {
		display = panel.NewConsoleDisplay(os.Stdout)
	}
	p := panel.New(store, command.NewSender(conn), display)
	p.RefreshOnResult = conf.RefreshOnResult

	q := conf.NewFrameQueue()
	receiver := link.NewReceiver(conn, q)
	worker := link.NewWorker(q, p.Handler())

	loop := &fx.Loop{Interval: conf.RefreshInterval}
	loop.Add(p)
	loop.AddRunnable(
		fx.NamedRun("receiver", receiver),
		fx.NamedRun("worker", worker),
	)
	if conf.MQTTBrokerURL != "" {
		defer startTelemetry(conf, store, loop).Close()
	}

	runner := fx.NewRunner().HandleSignals().Go(fx.NamedRun("loop", loop))
	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runner.Wait()
	}()
	shellCh := make(chan struct{})
	go func() {
		sh.New(p).WithLink(receiver, worker).Run(flag.Args()...)
		close(shellCh)
	}()

	// a failed link stops the loop, and the panel exits with it.
	select {
	case <-shellCh:
		runner.Stop()
		err = <-doneCh
	case err = <-doneCh:
	}
	if err != nil {
		glog.Errorf("panel stopped: %v", err)
	}
}
