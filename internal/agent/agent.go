package agent

import (
	"context"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"rgblight-controller/internal/config"
	"rgblight-controller/internal/core"
	"rgblight-controller/internal/light"
	"rgblight-controller/internal/lua"
	"rgblight-controller/internal/mqtt"
	"rgblight-controller/internal/property"
	"rgblight-controller/internal/pwm"
	"rgblight-controller/internal/scheduler"
	"rgblight-controller/internal/server"
)

// Output is a PWM backend the agent owns.
type Output interface {
	light.Output
	io.Closer
}

type Agent struct {
	ctx    context.Context
	cancel context.CancelFunc
	config *config.Config
	wg     sync.WaitGroup

	// loopDone is closed when the control loop returns.
	loopDone chan struct{}

	state          *core.State
	eventBus       *core.EventBus
	commandChannel core.CommandChannel

	controller   *light.Controller
	output       Output
	pollInterval time.Duration
	lastSnapshot light.Snapshot
	lastOutErr   string

	// brightnessRaw carries the payload text of the brightness command being
	// applied, so the echo can repeat it verbatim.
	brightnessRaw string

	luaEngine  *lua.Engine
	scheduler  *scheduler.Scheduler
	server     *server.Server
	mqttClient *mqtt.Client
}

// NewAgent builds every component from cfg. Nothing runs until Run.
func NewAgent(cfg *config.Config) (*Agent, error) {
	out, err := openOutput(cfg.PWM)
	if err != nil {
		return nil, err
	}
	return newAgent(cfg, out, time.Now)
}

func openOutput(cfg config.PWMConfig) (Output, error) {
	if cfg.Driver == "rpio" {
		out, err := pwm.OpenRpio(cfg.Pins(), cfg.Frequency, cfg.SoftwareFrequency)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	log.Println("[Agent] Using dry-run PWM output.")
	return pwm.NewLogger(), nil
}

func newAgent(cfg *config.Config, out Output, clock func() time.Time) (*Agent, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &Agent{
		ctx:            ctx,
		cancel:         cancel,
		config:         cfg,
		state:          core.NewState(),
		eventBus:       core.NewEventBus(),
		commandChannel: make(core.CommandChannel, 64),
		output:         out,
		loopDone:       make(chan struct{}),
	}
	_, a.pollInterval, _, _ = cfg.Light.Durations()

	ctrl, err := light.NewController(cfg.Light.Settings(), out, a, clock)
	if err != nil {
		cancel()
		return nil, err
	}
	a.controller = ctrl
	a.refreshState()

	a.luaEngine = lua.NewEngine(a.commandChannel, cfg.PatternsDir, a.eventBus)
	a.scheduler = scheduler.NewScheduler(a.commandChannel, cfg.SchedulesFile)

	a.server = server.NewServer(
		a.state,
		a.eventBus,
		a.commandChannel,
		a.luaEngine.GetPatternList,
		func() interface{} { return a.scheduler.GetAll() },
		cfg.Server.Port,
		cfg.Server.WebFilesDir,
		cfg.Server.AllowedOrigins,
	)

	a.mqttClient = mqtt.NewClient(cfg.MQTT, a.eventBus, a.state, a.commandChannel, a.luaEngine.GetPatternList)

	return a, nil
}

// Run starts the collaborators and then runs the control loop until Shutdown.
// The controller is only touched from this loop.
func (a *Agent) Run() {
	defer close(a.loopDone)

	a.goRun(a.listenEvents)
	a.goRun(a.server.Run)

	if a.mqttClient != nil {
		a.goRun(a.mqttClient.Run)
		go func() {
			if err := a.mqttClient.Connect(); err != nil {
				log.Printf("[Agent] MQTT Setup Error: %v", err)
			}
		}()
	}

	a.scheduler.Start()

	log.Printf("[Agent] Running on http://localhost:%s", a.config.Server.Port)
	go func() {
		if err := a.server.ListenAndServe(); err != nil {
			log.Printf("[Agent] Server error: %v", err)
		}
	}()

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	log.Println("[Agent] Control loop ready.")
	for {
		select {
		case <-a.ctx.Done():
			log.Println("[Agent] Control loop shutting down...")
			return
		case cmd := <-a.commandChannel:
			a.handleCommand(cmd)
		case now := <-ticker.C:
			a.poll(now)
		}
	}
}

func (a *Agent) goRun(fn func(ctx context.Context)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn(a.ctx)
	}()
}

func (a *Agent) listenEvents(ctx context.Context) {
	sub := a.eventBus.Subscribe(core.PatternChangedEvent)
	defer a.eventBus.Unsubscribe(sub, core.PatternChangedEvent)

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sub:
			if p, ok := event.Payload.(core.PatternPayload); ok {
				a.state.SetRunningPattern(p.Running)
			}
		}
	}
}

func (a *Agent) poll(now time.Time) {
	if err := a.controller.Poll(now); err != nil {
		if msg := err.Error(); msg != a.lastOutErr {
			log.Printf("[Agent] Output error: %v", err)
			a.lastOutErr = msg
		}
	} else if a.lastOutErr != "" {
		log.Println("[Agent] Output recovered.")
		a.lastOutErr = ""
	}
	a.refreshState()
}

// refreshState mirrors the controller into the shared state and announces
// the change. Reporter callbacks call it first, so subscribers of any light
// event read the new state.
func (a *Agent) refreshState() {
	snap := a.controller.Snapshot()
	if snap == a.lastSnapshot {
		return
	}
	a.lastSnapshot = snap
	a.state.Update(snap)
	a.eventBus.Publish(core.Event{Type: core.StateChangedEvent, Payload: snap})
}

func (a *Agent) handleCommand(cmd core.Command) {
	log.WithField("source", cmd.Source).Debugf("[Agent] Handling command: %s", cmd.Type)

	// Manual power and color changes take over from a running pattern.
	if cmd.Source != lua.Source && (cmd.Type == core.CmdSetPower || cmd.Type == core.CmdSetColor) {
		if a.state.Clone().RunningPattern != "" {
			log.Printf("[Agent] %s from %s, stopping pattern.", cmd.Type, cmd.Source)
			a.luaEngine.StopCurrentPattern()
		}
	}

	switch cmd.Type {
	case core.CmdSetPower:
		a.controller.SetPower(cmd.On)

	case core.CmdSetColor:
		a.controller.SetColor(cmd.Color)

	case core.CmdSetBrightness:
		a.brightnessRaw = cmd.Raw
		a.controller.SetBrightness(cmd.Brightness)
		a.brightnessRaw = ""

	case core.CmdConnected:
		a.controller.Connected()

	case core.CmdRunPattern:
		if err := a.luaEngine.RunPattern(cmd.Name); err != nil {
			log.Printf("[Agent] Could not run pattern '%s': %v", cmd.Name, err)
		}

	case core.CmdStopPattern:
		a.luaEngine.StopCurrentPattern()

	case core.CmdAddSchedule:
		if _, err := a.scheduler.Add(cmd.Spec, cmd.Name); err != nil {
			log.Printf("[Agent] Could not add schedule: %v", err)
			return
		}
		a.eventBus.Publish(core.Event{Type: core.ScheduleChangedEvent})

	case core.CmdRemoveSchedule:
		a.scheduler.Remove(cmd.ScheduleID)
		a.eventBus.Publish(core.Event{Type: core.ScheduleChangedEvent})

	default:
		log.Printf("[Agent] Unknown command type: %s", cmd.Type)
	}

	a.refreshState()
}

// PowerChanged implements light.Reporter.
func (a *Agent) PowerChanged(on bool) {
	a.refreshState()
	log.Printf("[Agent] Switch is %s", property.FormatPower(on))
	a.eventBus.Publish(core.Event{Type: core.PowerChangedEvent, Payload: core.PowerPayload{On: on}})
}

// ColorChanged implements light.Reporter.
func (a *Agent) ColorChanged(c light.Color) {
	a.refreshState()
	log.Printf("[Agent] Color: %s", c)
	a.eventBus.Publish(core.Event{Type: core.ColorChangedEvent, Payload: core.ColorPayload{Color: c}})
}

// BrightnessChanged implements light.Reporter.
func (a *Agent) BrightnessChanged(v uint8) {
	a.refreshState()
	a.eventBus.Publish(core.Event{
		Type:    core.BrightnessChangedEvent,
		Payload: core.BrightnessPayload{Value: v, Raw: a.brightnessRaw},
	})
}

// Shutdown stops the loop and every collaborator, then blanks the output.
func (a *Agent) Shutdown() {
	a.scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		log.Printf("[Agent] Server shutdown: %v", err)
	}
	if a.mqttClient != nil {
		a.mqttClient.Disconnect()
	}
	a.cancel()
	select {
	case <-a.loopDone:
	case <-time.After(2 * time.Second):
		log.Println("[Agent] Timeout waiting for control loop")
	}
	a.wg.Wait()
	a.luaEngine.Close()

	if err := light.Drive(a.output, [3]uint16{}, 0, false); err != nil {
		log.Printf("[Agent] Could not blank output: %v", err)
	}
	if err := a.output.Close(); err != nil {
		log.Printf("[Agent] Output close: %v", err)
	}
}
