package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/taskpanel/pkg/panel"
	"github.com/robotalks/taskpanel/pkg/telemetry"
	"github.com/robotalks/taskpanel/pkg/transport/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/taskpanel/"
	device  = "+"
)

func init() {
	if val := os.Getenv("TASKPANEL_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&device, "id", device, "Device ID to watch.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	ep, err := mqtt.ParseURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	c, err := mqtt.Dial(ep)
	if err != nil {
		log.Fatalln(err)
	}
	defer c.Close()

	c.Sub(telemetry.MetaTopic(device), func(topic string, payload []byte) {
		log.Printf("%s: %s", topic, string(payload))
	})
	c.Sub(telemetry.TasksTopic(device), func(topic string, payload []byte) {
		s, err := telemetry.DecodeSnapshot(payload)
		if err != nil {
			log.Printf("%s: bad snapshot: %v", topic, err)
			return
		}
		text := strings.TrimRight(panel.FormatTasks(s.TaskList()), "\n")
		log.Printf("%s: version=%d selected=%d tasks=%d\n%s",
			topic, s.Version, s.Selected, len(s.Tasks), text)
	})
	<-(chan struct{})(nil)
}
