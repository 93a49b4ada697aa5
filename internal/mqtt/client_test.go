package mqtt

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgblight-controller/internal/config"
	"rgblight-controller/internal/core"
	"rgblight-controller/internal/light"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type fakeBroker struct {
	mu        sync.Mutex
	connected bool
	published map[string]string
}

func (b *fakeBroker) IsConnected() bool { return b.connected }

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch p := payload.(type) {
	case string:
		b.published[topic] = p
	case []byte:
		b.published[topic] = string(p)
	}
	return doneToken{}
}

func (b *fakeBroker) get(topic string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.published[topic]
	return v, ok
}

type fakeMessage struct {
	topic   string
	payload string
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return []byte(m.payload) }
func (m fakeMessage) Ack()              {}

func newTestClient() (*Client, *fakeBroker) {
	cfg := config.MQTTConfig{
		Enabled:           true,
		ClientID:          "desk light",
		BaseTopic:         "homie",
		DeviceID:          "desk",
		HADiscoveryPrefix: "homeassistant",
	}
	b := &fakeBroker{connected: true, published: make(map[string]string)}
	c := &Client{
		pub:      b,
		cfg:      cfg,
		eventBus: core.NewEventBus(),
		state:    core.NewState(),
		commands: make(core.CommandChannel, 10),
		patterns: func() ([]string, error) { return []string{"breathe.lua"}, nil },
		prefix:   cfg.Topic(),
	}
	return c, b
}

func TestNewClientDisabled(t *testing.T) {
	assert.Nil(t, NewClient(config.MQTTConfig{}, core.NewEventBus(), core.NewState(), nil, nil))
}

func TestHandlersEnqueueCommands(t *testing.T) {
	c, _ := newTestClient()

	c.handleState(nil, fakeMessage{payload: "OFF"})
	c.handleRGB(nil, fakeMessage{payload: "10,20,300"})
	c.handleBrightness(nil, fakeMessage{payload: "128"})

	require.Len(t, c.commands, 3)
	assert.Equal(t, core.Command{Type: core.CmdSetPower, On: false, Source: "mqtt"}, <-c.commands)
	assert.Equal(t, core.Command{Type: core.CmdSetColor, Color: light.Color{R: 10, G: 20, B: 255}, Source: "mqtt"}, <-c.commands)
	assert.Equal(t, core.Command{Type: core.CmdSetBrightness, Brightness: 128, Raw: "128", Source: "mqtt"}, <-c.commands)
}

func TestHandlersRejectMalformed(t *testing.T) {
	c, _ := newTestClient()

	c.handleState(nil, fakeMessage{topic: "t", payload: "dim"})
	c.handleRGB(nil, fakeMessage{topic: "t", payload: "10,20"})
	c.handleRGB(nil, fakeMessage{topic: "t", payload: "red,green,blue"})
	c.handleBrightness(nil, fakeMessage{topic: "t", payload: "max"})

	assert.Len(t, c.commands, 0)
}

func TestPublishEvents(t *testing.T) {
	c, b := newTestClient()

	c.publishEvent(core.Event{Type: core.PowerChangedEvent, Payload: core.PowerPayload{On: true}})
	c.publishEvent(core.Event{Type: core.ColorChangedEvent, Payload: core.ColorPayload{Color: light.Color{R: 1, G: 2, B: 3}}})
	c.publishEvent(core.Event{Type: core.BrightnessChangedEvent, Payload: core.BrightnessPayload{Value: 255, Raw: "0300"}})

	v, _ := b.get("homie/desk/light/state")
	assert.Equal(t, "ON", v)
	v, _ = b.get("homie/desk/light/rgb")
	assert.Equal(t, "1,2,3", v)
	v, _ = b.get("homie/desk/light/brightness")
	assert.Equal(t, "0300", v, "brightness is echoed verbatim")

	c.publishEvent(core.Event{Type: core.BrightnessChangedEvent, Payload: core.BrightnessPayload{Value: 42}})
	v, _ = b.get("homie/desk/light/brightness")
	assert.Equal(t, "42", v)
}

func TestPublishSkipsWhenDisconnected(t *testing.T) {
	c, b := newTestClient()
	b.connected = false
	c.Publish("light/state", "ON", true)
	_, ok := b.get("homie/desk/light/state")
	assert.False(t, ok)
}

func TestPublishAttributes(t *testing.T) {
	c, b := newTestClient()
	c.publishAttributes()

	v, _ := b.get("homie/desk/$state")
	assert.Equal(t, "ready", v)
	v, _ = b.get("homie/desk/light/$properties")
	assert.Equal(t, "state,rgb,brightness", v)
	v, _ = b.get("homie/desk/light/rgb/$settable")
	assert.Equal(t, "true", v)
}

func TestPublishHADiscovery(t *testing.T) {
	c, b := newTestClient()
	c.PublishHADiscovery()

	raw, ok := b.get("homeassistant/light/desk_light/light/config")
	require.True(t, ok)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	assert.Equal(t, "homie/desk/light/rgb/set", payload["rgb_command_topic"])
	assert.Equal(t, "homie/desk/light/state", payload["state_topic"])
	assert.Equal(t, []interface{}{"breathe.lua"}, payload["effect_list"])

	assert.Equal(t, "homie/desk/$state", payload["availability_topic"])
	assert.Equal(t, "online", payload["payload_available"])
	assert.Equal(t, "offline", payload["payload_not_available"])
	assert.Contains(t, payload["availability_template"], "value == 'ready'")
}

func TestDisconnectAnnouncesState(t *testing.T) {
	c, b := newTestClient()
	c.Disconnect()

	v, ok := b.get("homie/desk/$state")
	require.True(t, ok)
	assert.Equal(t, "disconnected", v)
}

func TestDisconnectSkipsWhenOffline(t *testing.T) {
	c, b := newTestClient()
	b.connected = false
	c.Disconnect()

	_, ok := b.get("homie/desk/$state")
	assert.False(t, ok)
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "my_light-1", sanitizeID("my light-1!"))
}
