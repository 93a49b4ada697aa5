package lua

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"rgblight-controller/internal/core"
	"rgblight-controller/internal/light"
	"rgblight-controller/internal/property"
)

// registerGoFunctions exposes the light API to a pattern.
func (e *Engine) registerGoFunctions(L *lua.LState, ctx context.Context) {
	L.SetGlobal("set_color", L.NewFunction(func(L *lua.LState) int {
		c := light.Color{R: property.Clamp(L.CheckInt(1)), G: property.Clamp(L.CheckInt(2)), B: property.Clamp(L.CheckInt(3))}
		e.send(ctx, core.Command{Type: core.CmdSetColor, Color: c})
		return 0
	}))
	L.SetGlobal("set_brightness", L.NewFunction(func(L *lua.LState) int {
		e.send(ctx, core.Command{Type: core.CmdSetBrightness, Brightness: property.Clamp(L.CheckInt(1))})
		return 0
	}))
	L.SetGlobal("set_power", L.NewFunction(func(L *lua.LState) int {
		e.send(ctx, core.Command{Type: core.CmdSetPower, On: L.ToBool(1)})
		return 0
	}))
	L.SetGlobal("sleep", L.NewFunction(func(L *lua.LState) int {
		cancellableSleep(ctx, time.Duration(L.CheckInt(1))*time.Millisecond)
		return 0
	}))
	L.SetGlobal("should_stop", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(ctx.Err() != nil))
		return 1
	}))
	L.SetGlobal("print", L.NewFunction(luaPrint))
	L.SetGlobal("breathe", L.NewFunction(func(L *lua.LState) int {
		e.breathe(ctx, time.Duration(L.CheckInt(1))*time.Millisecond)
		return 0
	}))
	L.SetGlobal("strobe", L.NewFunction(func(L *lua.LState) int {
		c := light.Color{R: property.Clamp(L.CheckInt(1)), G: property.Clamp(L.CheckInt(2)), B: property.Clamp(L.CheckInt(3))}
		e.strobe(ctx, c, time.Duration(L.CheckInt(4))*time.Millisecond, float64(L.CheckNumber(5)))
		return 0
	}))
}

func luaPrint(L *lua.LState) int {
	log.Printf("[Lua] %s", L.ToString(1))
	return 0
}

// send queues a command, waiting for room unless the pattern is stopped.
func (e *Engine) send(ctx context.Context, cmd core.Command) {
	cmd.Source = Source
	select {
	case e.commands <- cmd:
	case <-ctx.Done():
	}
}

// cancellableSleep sleeps for d and reports whether ctx was cancelled first.
func cancellableSleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-ctx.Done():
		return true
	}
}

// breathe pulses brightness from low to full and back over d. The color is
// whatever was set before.
func (e *Engine) breathe(ctx context.Context, d time.Duration) {
	const steps = 64
	step := d / (2 * steps)

	for i := 1; i <= steps; i++ {
		e.send(ctx, core.Command{Type: core.CmdSetBrightness, Brightness: uint8(i*4 - 1)})
		if cancellableSleep(ctx, step) {
			return
		}
	}
	for i := steps; i >= 1; i-- {
		e.send(ctx, core.Command{Type: core.CmdSetBrightness, Brightness: uint8(i*4 - 1)})
		if cancellableSleep(ctx, step) {
			return
		}
	}
}

// strobe flashes c at hz for d. Flashes go through the ramp, so very high
// rates soften into a pulse.
func (e *Engine) strobe(ctx context.Context, c light.Color, d time.Duration, hz float64) {
	if hz <= 0 {
		return
	}
	half := time.Duration(float64(time.Second) / hz / 2)
	e.send(ctx, core.Command{Type: core.CmdSetPower, On: true})

	for start := time.Now(); time.Since(start) < d; {
		e.send(ctx, core.Command{Type: core.CmdSetColor, Color: c})
		if cancellableSleep(ctx, half) {
			return
		}
		e.send(ctx, core.Command{Type: core.CmdSetColor})
		if cancellableSleep(ctx, half) {
			return
		}
	}
}
