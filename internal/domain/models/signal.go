package models

import (
	"fmt"
	"strings"
)

// Signal is the fixed set of actions a strategy may recommend.
type Signal string

const (
	SignalLong  Signal = "LONG"
	SignalShort Signal = "SHORT"
	SignalFlat  Signal = "FLAT"
	SignalHold  Signal = "HOLD"
)

// IsValid reports whether s is one of the known signals.
func (s Signal) IsValid() bool {
	switch s {
	case SignalLong, SignalShort, SignalFlat, SignalHold:
		return true
	default:
		return false
	}
}

func (s Signal) String() string { return string(s) }

// ParseSignal converts a case-insensitive name to a Signal.
func ParseSignal(raw string) (Signal, error) {
	s := Signal(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown signal %q", raw)
	}
	return s, nil
}
