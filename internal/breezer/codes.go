package breezer

import (
	"fmt"
	"strconv"
)

// Operating mode wire codes as published on state/mode and accepted on
// control/mode. Code 0 means the unit is off; everything else is a named
// running mode.
const (
	ModeOff    = 0
	ModeManual = 1 // manual fan control
	ModeAuto   = 2 // automatic, CO2 sensor driven
	ModeNight  = 3 // night / sleep
	ModeTurbo  = 4 // boost
	ModeEco    = 5
)

// Preset is the externally visible named operating mode.
type Preset string

// Preset names, aligned with common climate-platform preset vocabularies.
const (
	PresetNone    Preset = "none"
	PresetComfort Preset = "comfort"
	PresetAuto    Preset = "auto"
	PresetSleep   Preset = "sleep"
	PresetBoost   Preset = "boost"
	PresetEco     Preset = "eco"
)

// Fan speed wire codes run 0 (off) through 7.
const (
	SpeedOff = 0
	SpeedMax = 7
)

// FanOff is the fan label for speed code 0.
const FanOff = "Off"

// PresetForMode maps an operating mode code to its preset.
//
// The mapping is total: code 0 and any unrecognised code map to
// PresetNone. Unrecognised codes are not an error here; the caller decides
// whether to log them.
func PresetForMode(code int) Preset {
	switch code {
	case ModeManual:
		return PresetComfort
	case ModeAuto:
		return PresetAuto
	case ModeNight:
		return PresetSleep
	case ModeTurbo:
		return PresetBoost
	case ModeEco:
		return PresetEco
	default:
		return PresetNone
	}
}

// ModeForPreset maps a preset name to its operating mode code.
// Unrecognised presets default to ModeManual.
func ModeForPreset(preset Preset) int {
	switch preset {
	case PresetComfort:
		return ModeManual
	case PresetAuto:
		return ModeAuto
	case PresetSleep:
		return ModeNight
	case PresetBoost:
		return ModeTurbo
	case PresetEco:
		return ModeEco
	default:
		return ModeManual
	}
}

// KnownMode reports whether code is in the documented 0-5 vocabulary.
// Codes outside it are still stored (power derives from code != 0) but are
// worth a warning.
func KnownMode(code int) bool {
	return code >= ModeOff && code <= ModeEco
}

// LabelForSpeed maps a fan speed code to its label ("Off", "S1".."S7").
// Out-of-range codes map to "Off".
func LabelForSpeed(code int) string {
	if code < SpeedOff+1 || code > SpeedMax {
		return FanOff
	}
	return fmt.Sprintf("S%d", code)
}

// SpeedForLabel maps a fan label back to its wire code.
//
// Accepted forms are the labels "Off" and "S1".."S7", and bare digit
// strings "0".."7" as published by the device. Anything else falls back to
// SpeedOff.
func SpeedForLabel(label string) int {
	// Bare digit form, as seen on state/speed
	if code, err := strconv.Atoi(label); err == nil {
		if code >= SpeedOff && code <= SpeedMax {
			return code
		}
		return SpeedOff
	}

	if label == FanOff {
		return SpeedOff
	}

	// Labelled form "S<n>"
	if len(label) == 2 && label[0] == 'S' {
		if code := int(label[1] - '0'); code >= 1 && code <= SpeedMax {
			return code
		}
	}

	return SpeedOff
}

// FanModes returns the full ordered label vocabulary.
func FanModes() []string {
	modes := make([]string, 0, SpeedMax+1)
	modes = append(modes, FanOff)
	for code := 1; code <= SpeedMax; code++ {
		modes = append(modes, LabelForSpeed(code))
	}
	return modes
}

// Presets returns the full preset vocabulary.
func Presets() []Preset {
	return []Preset{PresetComfort, PresetAuto, PresetSleep, PresetBoost, PresetEco, PresetNone}
}
