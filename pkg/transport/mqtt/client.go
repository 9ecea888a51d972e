// Package mqtt carries the panel link and telemetry over an MQTT broker.
package mqtt

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("mqtt not connected")

// Handler is the callback when a message is received.
type Handler func(topic string, payload []byte)

// Endpoint is a broker URL broken into client options and topic settings.
type Endpoint struct {
	Options     *paho.ClientOptions
	TopicPrefix string
	Device      string
}

// ParseURL parses mqtt://[user:pass@]host:port/prefix?device=ID&client-id=ID.
// A non-empty prefix always ends with "/".
func ParseURL(brokerURL string) (*Endpoint, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, err
	}
	scheme := u.Scheme
	switch scheme {
	case "", "mqtt":
		scheme = "tcp"
	case "mqtts":
		scheme = "ssl"
	}
	if u.Host == "" {
		return nil, errors.New("mqtt: missing broker host in " + brokerURL)
	}

	prefix := strings.TrimPrefix(u.Path, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	query := u.Query()
	if clientID := query.Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return &Endpoint{Options: opts, TopicPrefix: prefix, Device: query.Get("device")}, nil
}

// MatchTopic matches topic with a pattern which may contain "+" and a
// trailing "#".
func MatchTopic(topic, pattern string) bool {
	tokensT, tokensP := strings.Split(topic, "/"), strings.Split(pattern, "/")
	for i, token := range tokensP {
		if token == "#" && i+1 == len(tokensP) {
			return true
		}
		if i >= len(tokensT) {
			return false
		}
		if token != "+" && token != tokensT[i] {
			return false
		}
	}
	return len(tokensP) == len(tokensT)
}

// Client wraps a paho client, prefixing topics and dispatching received
// messages to local subscriptions.
type Client struct {
	paho.Client
	TopicPrefix string
	// OnConnect is invoked after each (re)connect, once subscriptions are restored.
	OnConnect func(*Client)

	subsLock sync.RWMutex
	subs     map[string][]*Subscription
}

// Subscription is a local handler of a topic pattern.
type Subscription struct {
	Token paho.Token

	client  *Client
	pattern string
	handler Handler
}

// NewClient creates a Client. The connect and connection lost handlers of
// options are replaced.
func NewClient(options *paho.ClientOptions, topicPrefix string) *Client {
	c := &Client{TopicPrefix: topicPrefix, subs: make(map[string][]*Subscription)}
	options.SetOnConnectHandler(c.connected)
	options.SetConnectionLostHandler(func(_ paho.Client, err error) {
		glog.Warningf("mqtt connection lost: %v", err)
	})
	c.Client = paho.NewClient(options)
	return c
}

// Dial creates a Client for the endpoint and waits for the connection.
func Dial(ep *Endpoint) (*Client, error) {
	c := NewClient(ep.Options, ep.TopicPrefix)
	token := c.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}
	return c, nil
}

// Close implements io.Closer.
func (c *Client) Close() error {
	c.Disconnect(250)
	return nil
}

// Sub subscribes a topic pattern relative to the prefix.
func (c *Client) Sub(pattern string, handler Handler) *Subscription {
	sub := &Subscription{client: c, pattern: pattern, handler: handler}
	c.subsLock.Lock()
	first := len(c.subs[pattern]) == 0
	c.subs[pattern] = append(c.subs[pattern], sub)
	c.subsLock.Unlock()
	if first {
		glog.V(2).Infof("SUB %q", c.TopicPrefix+pattern)
		sub.Token = c.Subscribe(c.TopicPrefix+pattern, 0, c.dispatch)
	} else {
		sub.Token = &paho.DummyToken{}
	}
	return sub
}

// Pub publishes payload to a topic relative to the prefix.
func (c *Client) Pub(topic string, payload []byte, retain bool) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.Publish(c.TopicPrefix+topic, 0, retain, payload)
	token.Wait()
	return token.Error()
}

func (c *Client) connected(paho.Client) {
	glog.Info("mqtt connected")
	filters := make(map[string]byte)
	c.subsLock.RLock()
	for pattern := range c.subs {
		filters[c.TopicPrefix+pattern] = 0
	}
	c.subsLock.RUnlock()
	if len(filters) > 0 {
		c.SubscribeMultiple(filters, c.dispatch)
	}
	if fn := c.OnConnect; fn != nil {
		fn(c)
	}
}

func (c *Client) dispatch(_ paho.Client, msg paho.Message) {
	topic := msg.Topic()
	if !strings.HasPrefix(topic, c.TopicPrefix) {
		return
	}
	topic = topic[len(c.TopicPrefix):]
	glog.V(4).Infof("RCV %q %d bytes", topic, len(msg.Payload()))
	c.deliver(topic, msg.Payload())
}

func (c *Client) deliver(topic string, payload []byte) {
	var handlers []Handler
	c.subsLock.RLock()
	for pattern, subs := range c.subs {
		if MatchTopic(topic, pattern) {
			for _, sub := range subs {
				handlers = append(handlers, sub.handler)
			}
		}
	}
	c.subsLock.RUnlock()
	for _, h := range handlers {
		h(topic, payload)
	}
}

// Close removes the handler, unsubscribing the broker when it was the last
// one of the pattern.
func (s *Subscription) Close() error {
	c := s.client
	c.subsLock.Lock()
	subs := c.subs[s.pattern]
	for i, sub := range subs {
		if sub == s {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	last := len(subs) == 0
	if last {
		delete(c.subs, s.pattern)
	} else {
		c.subs[s.pattern] = subs
	}
	c.subsLock.Unlock()
	if !last || !c.IsConnected() {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", c.TopicPrefix+s.pattern)
	token := c.Unsubscribe(c.TopicPrefix + s.pattern)
	token.Wait()
	return token.Error()
}
