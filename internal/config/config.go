package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"rgblight-controller/internal/light"
	"rgblight-controller/internal/pwm"
)

// ServerConfig holds the HTTP/WebSocket settings.
type ServerConfig struct {
	Port           string   `json:"port"`
	WebFilesDir    string   `json:"web_files_dir"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// LightConfig holds the ramp and auto-cycle timing.
type LightConfig struct {
	RampInterval   string     `json:"ramp_interval"`
	PollInterval   string     `json:"poll_interval"`
	CycleDuration  string     `json:"cycle_duration"`
	ReportInterval string     `json:"report_interval"`
	Palette        [][3]uint8 `json:"palette"`
}

// PWMConfig selects and configures the output backend.
type PWMConfig struct {
	// Driver is "rpio" for Raspberry Pi GPIO or "log" for a dry run.
	Driver   string `json:"driver"`
	PinRed   int    `json:"pin_red"`
	PinGreen int    `json:"pin_green"`
	PinBlue  int    `json:"pin_blue"`

	// Frequency applies to pins on a hardware PWM channel, SoftwareFrequency
	// to the others.
	Frequency         int `json:"frequency"`
	SoftwareFrequency int `json:"software_frequency"`
}

// Pins returns the GPIO numbers in red, green, blue order.
func (p PWMConfig) Pins() [3]int {
	return [3]int{p.PinRed, p.PinGreen, p.PinBlue}
}

// MQTTConfig holds the broker connection and topic layout.
type MQTTConfig struct {
	Enabled            bool   `json:"enabled"`
	Broker             string `json:"broker"` // tcp://IP:PORT
	Username           string `json:"username"`
	Password           string `json:"password"`
	ClientID           string `json:"client_id"`
	BaseTopic          string `json:"base_topic"`
	DeviceID           string `json:"device_id"`
	HADiscoveryEnabled bool   `json:"ha_discovery_enabled"`
	HADiscoveryPrefix  string `json:"ha_discovery_prefix"`
}

// Config is the top level configuration file.
type Config struct {
	Server ServerConfig `json:"server"`
	Light  LightConfig  `json:"light"`
	PWM    PWMConfig    `json:"pwm"`
	MQTT   MQTTConfig   `json:"mqtt"`

	PatternsDir   string `json:"patterns_dir"`
	SchedulesFile string `json:"schedules_file"`
	LogLevel      string `json:"log_level"`
}

// Load reads the file at path, applies defaults and validates. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[Config] %s not found, using defaults", path)
			cfg := &Config{}
			cfg.setDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer file.Close()

	cfg := &Config{}
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}

	if v := os.Getenv("RGBLIGHT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}

	cfg.sanitize()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) sanitize() {
	c.Server.Port = strings.TrimSpace(c.Server.Port)
	c.Server.WebFilesDir = strings.TrimSpace(c.Server.WebFilesDir)
	c.PatternsDir = strings.TrimSpace(c.PatternsDir)
	c.SchedulesFile = strings.TrimSpace(c.SchedulesFile)
	c.PWM.Driver = strings.ToLower(strings.TrimSpace(c.PWM.Driver))
	c.MQTT.BaseTopic = strings.Trim(strings.TrimSpace(c.MQTT.BaseTopic), "/")
	c.MQTT.DeviceID = strings.TrimSpace(c.MQTT.DeviceID)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.WebFilesDir == "" {
		c.Server.WebFilesDir = "./web"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:8080"}
	}

	if c.Light.RampInterval == "" {
		c.Light.RampInterval = light.DefaultRampInterval.String()
	}
	if c.Light.PollInterval == "" {
		c.Light.PollInterval = light.DefaultRampInterval.String()
	}
	if c.Light.CycleDuration == "" {
		c.Light.CycleDuration = light.DefaultCycleDuration.String()
	}
	if c.Light.ReportInterval == "" {
		c.Light.ReportInterval = light.DefaultReportInterval.String()
	}

	if c.PWM.Driver == "" {
		c.PWM.Driver = "log"
	}
	if c.PWM.PinRed == 0 && c.PWM.PinGreen == 0 && c.PWM.PinBlue == 0 {
		// pwm0, pwm1 and a software driven pin.
		c.PWM.PinRed, c.PWM.PinGreen, c.PWM.PinBlue = 12, 13, 26
	}
	if c.PWM.Frequency <= 0 {
		c.PWM.Frequency = 1000
	}
	if c.PWM.SoftwareFrequency <= 0 {
		c.PWM.SoftwareFrequency = pwm.DefaultSoftwareFrequency
	}

	if c.PatternsDir == "" {
		c.PatternsDir = "patterns"
	}
	if c.SchedulesFile == "" {
		c.SchedulesFile = "schedules.json"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "rgblight-controller"
	}
	if c.MQTT.BaseTopic == "" {
		c.MQTT.BaseTopic = "homie"
	}
	if c.MQTT.DeviceID == "" {
		c.MQTT.DeviceID = "rgb-light"
	}
	if c.MQTT.HADiscoveryPrefix == "" {
		c.MQTT.HADiscoveryPrefix = "homeassistant"
	}
}

func (c *Config) validate() error {
	durations := map[string]string{
		"ramp_interval":   c.Light.RampInterval,
		"poll_interval":   c.Light.PollInterval,
		"cycle_duration":  c.Light.CycleDuration,
		"report_interval": c.Light.ReportInterval,
	}
	for name, v := range durations {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config error: '%s': %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("config error: '%s' must be positive", name)
		}
	}

	switch c.PWM.Driver {
	case "rpio":
		if err := pwm.CheckPins(c.PWM.Pins()); err != nil {
			return fmt.Errorf("config error: 'pwm' pins: %w", err)
		}
	case "log":
	default:
		return fmt.Errorf("config error: unknown pwm driver '%s'", c.PWM.Driver)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config error: 'log_level': %w", err)
	}
	return nil
}

// Durations returns the parsed light timings. Load has validated them.
func (l LightConfig) Durations() (ramp, poll, cycle, report time.Duration) {
	ramp, _ = time.ParseDuration(l.RampInterval)
	poll, _ = time.ParseDuration(l.PollInterval)
	cycle, _ = time.ParseDuration(l.CycleDuration)
	report, _ = time.ParseDuration(l.ReportInterval)
	return
}

// Settings converts the light section into controller settings.
func (l LightConfig) Settings() light.Settings {
	ramp, _, cycle, report := l.Durations()
	var palette []light.Color
	for _, p := range l.Palette {
		palette = append(palette, light.Color{R: p[0], G: p[1], B: p[2]})
	}
	return light.Settings{
		RampInterval:   ramp,
		CycleDuration:  cycle,
		ReportInterval: report,
		Palette:        palette,
	}
}

// Topic returns the device topic root, e.g. homie/rgb-light.
func (m MQTTConfig) Topic() string {
	return m.BaseTopic + "/" + m.DeviceID
}
