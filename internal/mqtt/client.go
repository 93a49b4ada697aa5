// Package mqtt exposes the light as a Homie device: settable state, rgb and
// brightness properties, plus optional Home Assistant discovery.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"rgblight-controller/internal/config"
	"rgblight-controller/internal/core"
	"rgblight-controller/internal/property"
)

const (
	nodeID = "light"

	propState      = "state"
	propRGB        = "rgb"
	propBrightness = "brightness"

	// Homie $state values.
	stateReady        = "ready"
	stateDisconnected = "disconnected"
	stateLost         = "lost"
)

// broker is the part of the paho client used for publishing.
type broker interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type Client struct {
	client   mqtt.Client
	pub      broker
	cfg      config.MQTTConfig
	eventBus *core.EventBus
	state    *core.State
	commands core.CommandChannel
	patterns func() ([]string, error)
	prefix   string
}

// NewClient prepares the broker connection. It returns nil when MQTT is
// disabled.
func NewClient(cfg config.MQTTConfig, eb *core.EventBus, state *core.State, commands core.CommandChannel, patterns func() ([]string, error)) *Client {
	if !cfg.Enabled {
		return nil
	}

	c := &Client{
		cfg:      cfg,
		eventBus: eb,
		state:    state,
		commands: commands,
		patterns: patterns,
		prefix:   cfg.Topic(),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)

	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)
	// Keep retrying at startup so a broker that comes up after us is fine.
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetOrderMatters(false)

	opts.SetWill(c.topic("$state"), stateLost, 1, true)

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("[MQTT] Connection lost: %v. Retrying in background...", err)
		c.setConnected(false)
	})
	opts.SetReconnectingHandler(func(client mqtt.Client, options *mqtt.ClientOptions) {
		log.Println("[MQTT] Attempting to reconnect...")
	})

	c.client = mqtt.NewClient(opts)
	c.pub = c.client
	return c
}

// Connect starts the connection loop and waits for the first attempt.
func (c *Client) Connect() error {
	log.Printf("[MQTT] Starting connection loop to %s...", c.cfg.Broker)

	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		log.Printf("[MQTT] Initial connection error: %v", token.Error())
		return token.Error()
	}
	return nil
}

// Disconnect announces the device as disconnected and closes the connection.
func (c *Client) Disconnect() {
	if c.pub == nil || !c.pub.IsConnected() {
		return
	}
	log.Println("[MQTT] Disconnecting...")

	token := c.pub.Publish(c.topic("$state"), 1, true, stateDisconnected)
	if !token.WaitTimeout(2 * time.Second) {
		log.Println("[MQTT] Warning: timed out publishing disconnected state")
	} else if token.Error() != nil {
		log.Printf("[MQTT] Warning: failed to publish disconnected state: %v", token.Error())
	}

	if c.client != nil {
		c.client.Disconnect(250)
	}
	log.Println("[MQTT] Disconnected.")
}

// Run forwards state notifications from the event bus to the broker until ctx
// is done.
func (c *Client) Run(ctx context.Context) {
	events := []core.EventType{core.PowerChangedEvent, core.ColorChangedEvent, core.BrightnessChangedEvent}
	sub := c.eventBus.Subscribe(events...)
	defer c.eventBus.Unsubscribe(sub, events...)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub:
			c.publishEvent(ev)
		}
	}
}

func (c *Client) publishEvent(ev core.Event) {
	switch p := ev.Payload.(type) {
	case core.PowerPayload:
		c.Publish(propertyTopic(propState), property.FormatPower(p.On), true)
	case core.ColorPayload:
		c.Publish(propertyTopic(propRGB), property.FormatColor(p.Color), true)
	case core.BrightnessPayload:
		value := p.Raw
		if value == "" {
			value = strconv.Itoa(int(p.Value))
		}
		c.Publish(propertyTopic(propBrightness), value, true)
	}
}

// Publish sends payload to a topic below the device root. It does not block
// on delivery.
func (c *Client) Publish(subtopic string, payload interface{}, retained bool) {
	if c.pub == nil || !c.pub.IsConnected() {
		return
	}

	topic := c.topic(subtopic)
	token := c.pub.Publish(topic, 1, retained, fmt.Sprintf("%v", payload))

	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("[MQTT] Timeout publishing to %s", topic)
		} else if token.Error() != nil {
			log.Printf("[MQTT] Publish error to %s: %v", topic, token.Error())
		}
	}()
}

func (c *Client) topic(sub string) string {
	return c.prefix + "/" + sub
}

func propertyTopic(prop string) string {
	return nodeID + "/" + prop
}

func (c *Client) setConnected(connected bool) {
	c.state.SetBrokerConnected(connected)
	c.eventBus.Publish(core.Event{Type: core.BrokerConnectedEvent, Payload: core.ConnectionPayload{Connected: connected}})
}

// onConnect runs on paho's internal goroutine after every (re)connection.
func (c *Client) onConnect(client mqtt.Client) {
	log.Println("[MQTT] Connected to broker.")

	handlers := map[string]mqtt.MessageHandler{
		propState:      c.handleState,
		propRGB:        c.handleRGB,
		propBrightness: c.handleBrightness,
	}
	for prop, handler := range handlers {
		topic := c.topic(propertyTopic(prop) + "/set")
		if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			log.Printf("[MQTT] Error subscribing to %s: %v", topic, token.Error())
		} else {
			log.Printf("[MQTT] Subscribed to %s", topic)
		}
	}

	c.setConnected(true)

	go func() {
		c.publishAttributes()
		if c.cfg.HADiscoveryEnabled {
			c.PublishHADiscovery()
		}
		// Only the first connection of the process has an effect.
		if !c.commands.Send(core.Command{Type: core.CmdConnected, Source: "mqtt"}) {
			log.Println("[MQTT] Command queue full, dropping connected event")
		}
	}()
}

// publishAttributes announces the Homie device layout.
func (c *Client) publishAttributes() {
	attrs := [][2]string{
		{"$homie", "3.0"},
		{"$name", c.cfg.ClientID},
		{"$nodes", nodeID},
		{nodeID + "/$name", "Light"},
		{nodeID + "/$type", "rgb"},
		{nodeID + "/$properties", strings.Join([]string{propState, propRGB, propBrightness}, ",")},

		{propertyTopic(propState) + "/$settable", "true"},
		{propertyTopic(propState) + "/$datatype", "enum"},
		{propertyTopic(propState) + "/$format", "ON,OFF"},

		{propertyTopic(propRGB) + "/$settable", "true"},
		{propertyTopic(propRGB) + "/$datatype", "color"},
		{propertyTopic(propRGB) + "/$format", "rgb"},

		{propertyTopic(propBrightness) + "/$settable", "true"},
		{propertyTopic(propBrightness) + "/$datatype", "integer"},
		{propertyTopic(propBrightness) + "/$format", "0:255"},

		{"$state", stateReady},
	}
	for _, a := range attrs {
		c.Publish(a[0], a[1], true)
	}
}

// PublishHADiscovery sends the Home Assistant light config.
func (c *Client) PublishHADiscovery() {
	patterns, err := c.patterns()
	if err != nil {
		log.Printf("[MQTT] Warning: could not list patterns for HA discovery: %v", err)
		patterns = []string{}
	}

	safeID := sanitizeID(c.cfg.ClientID)
	discoveryTopic := fmt.Sprintf("%s/light/%s/light/config", c.cfg.HADiscoveryPrefix, safeID)

	payload := map[string]interface{}{
		"name":      "Light",
		"unique_id": safeID + "_light",
		"object_id": safeID,
		"icon":      "mdi:led-strip-variant",

		"command_topic": c.topic(propertyTopic(propState) + "/set"),
		"state_topic":   c.topic(propertyTopic(propState)),
		"payload_on":    property.On,
		"payload_off":   property.Off,

		"brightness_command_topic": c.topic(propertyTopic(propBrightness) + "/set"),
		"brightness_state_topic":   c.topic(propertyTopic(propBrightness)),
		"brightness_scale":         255,

		"rgb_command_topic": c.topic(propertyTopic(propRGB) + "/set"),
		"rgb_state_topic":   c.topic(propertyTopic(propRGB)),

		"effect_list": patterns,

		// Anything but ready ($state init, disconnected, lost) is offline.
		"availability_topic":    c.topic("$state"),
		"availability_template": "{{ 'online' if value == '" + stateReady + "' else 'offline' }}",
		"payload_available":     "online",
		"payload_not_available": "offline",

		"device": map[string]interface{}{
			"identifiers":  []string{safeID},
			"name":         c.cfg.ClientID,
			"manufacturer": "rgblight",
			"model":        "PWM RGB controller",
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[MQTT] Error encoding discovery payload: %v", err)
		return
	}
	c.pub.Publish(discoveryTopic, 0, true, data)
	log.Printf("[MQTT] HA Discovery sent to %s", discoveryTopic)
}

func sanitizeID(id string) string {
	id = strings.ReplaceAll(id, " ", "_")
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return -1
	}, id)
}

// --- Handlers ---

func (c *Client) handleState(client mqtt.Client, msg mqtt.Message) {
	on, err := property.ParsePower(string(msg.Payload()))
	if err != nil {
		log.Printf("[MQTT] Rejected %s: %v", msg.Topic(), err)
		return
	}
	c.enqueue(core.Command{Type: core.CmdSetPower, On: on, Source: "mqtt"})
}

func (c *Client) handleRGB(client mqtt.Client, msg mqtt.Message) {
	col, err := property.ParseColor(string(msg.Payload()))
	if err != nil {
		log.Printf("[MQTT] Rejected %s: %v", msg.Topic(), err)
		return
	}
	c.enqueue(core.Command{Type: core.CmdSetColor, Color: col, Source: "mqtt"})
}

func (c *Client) handleBrightness(client mqtt.Client, msg mqtt.Message) {
	raw := string(msg.Payload())
	v, err := property.ParseBrightness(raw)
	if err != nil {
		log.Printf("[MQTT] Rejected %s: %v", msg.Topic(), err)
		return
	}
	c.enqueue(core.Command{Type: core.CmdSetBrightness, Brightness: v, Raw: raw, Source: "mqtt"})
}

func (c *Client) enqueue(cmd core.Command) {
	if !c.commands.Send(cmd) {
		log.Printf("[MQTT] Command queue full, dropping %s", cmd.Type)
	}
}
