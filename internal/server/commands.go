package server

import (
	"encoding/json"

	"github.com/pkg/errors"

	"rgblight-controller/internal/core"
	"rgblight-controller/internal/property"
)

type powerPayload struct {
	IsOn *bool `json:"isOn"`
}

type colorPayload struct {
	R *int `json:"r"`
	G *int `json:"g"`
	B *int `json:"b"`
}

type valuePayload struct {
	Value *int `json:"value"`
}

type namePayload struct {
	Name string `json:"name"`
}

type schedulePayload struct {
	Spec    string `json:"spec"`
	Command string `json:"command"`
}

type scheduleIDPayload struct {
	ID *int `json:"id"`
}

// decodeCommand turns a client message into a queued command. Missing or
// mistyped fields reject the whole command.
func decodeCommand(raw []byte) (core.Command, error) {
	var msg Command
	if err := json.Unmarshal(raw, &msg); err != nil {
		return core.Command{}, errors.Wrap(err, "decode command")
	}
	cmd := core.Command{Type: core.CommandType(msg.Type), Source: "ws"}

	switch cmd.Type {
	case core.CmdSetPower:
		var p powerPayload
		if err := unmarshalPayload(msg, &p); err != nil {
			return cmd, err
		}
		if p.IsOn == nil {
			return cmd, errors.New("setPower: missing isOn")
		}
		cmd.On = *p.IsOn

	case core.CmdSetColor:
		var p colorPayload
		if err := unmarshalPayload(msg, &p); err != nil {
			return cmd, err
		}
		if p.R == nil || p.G == nil || p.B == nil {
			return cmd, errors.New("setColor: want r, g and b")
		}
		cmd.Color.R, cmd.Color.G, cmd.Color.B = property.Clamp(*p.R), property.Clamp(*p.G), property.Clamp(*p.B)

	case core.CmdSetBrightness:
		var p valuePayload
		if err := unmarshalPayload(msg, &p); err != nil {
			return cmd, err
		}
		if p.Value == nil {
			return cmd, errors.New("setBrightness: missing value")
		}
		cmd.Brightness = property.Clamp(*p.Value)

	case core.CmdRunPattern:
		var p namePayload
		if err := unmarshalPayload(msg, &p); err != nil {
			return cmd, err
		}
		if p.Name == "" {
			return cmd, errors.New("runPattern: missing name")
		}
		cmd.Name = p.Name

	case core.CmdStopPattern:

	case core.CmdAddSchedule:
		var p schedulePayload
		if err := unmarshalPayload(msg, &p); err != nil {
			return cmd, err
		}
		if p.Spec == "" || p.Command == "" {
			return cmd, errors.New("addSchedule: want spec and command")
		}
		cmd.Spec, cmd.Name = p.Spec, p.Command

	case core.CmdRemoveSchedule:
		var p scheduleIDPayload
		if err := unmarshalPayload(msg, &p); err != nil {
			return cmd, err
		}
		if p.ID == nil {
			return cmd, errors.New("removeSchedule: missing id")
		}
		cmd.ScheduleID = *p.ID

	default:
		return cmd, errors.Errorf("unknown command type %q", msg.Type)
	}
	return cmd, nil
}

func unmarshalPayload(msg Command, v interface{}) error {
	if len(msg.Payload) == 0 {
		return errors.Errorf("%s: missing payload", msg.Type)
	}
	return errors.Wrapf(json.Unmarshal(msg.Payload, v), "%s payload", msg.Type)
}
