package core

import "rgblight-controller/internal/light"

// CommandType defines the type of command being dispatched.
type CommandType string

const (
	CmdSetPower       CommandType = "setPower"
	CmdSetColor       CommandType = "setColor"
	CmdSetBrightness  CommandType = "setBrightness"
	CmdConnected      CommandType = "connected"
	CmdRunPattern     CommandType = "runPattern"
	CmdStopPattern    CommandType = "stopPattern"
	CmdAddSchedule    CommandType = "addSchedule"
	CmdRemoveSchedule CommandType = "removeSchedule"
)

// Command is the envelope for incoming requests. Payloads are already parsed;
// only the field matching Type is meaningful.
type Command struct {
	Type       CommandType
	On         bool
	Color      light.Color
	Brightness uint8
	Name       string
	Spec       string
	ScheduleID int

	// Raw is the payload text as received, echoed back for brightness.
	Raw string

	// Source names the producer, for logs.
	Source string
}

// CommandChannel is the single channel that the core Agent listens to for commands.
type CommandChannel chan Command

// Send enqueues cmd without blocking. It reports false when the queue is full.
func (c CommandChannel) Send(cmd Command) bool {
	select {
	case c <- cmd:
		return true
	default:
		return false
	}
}
