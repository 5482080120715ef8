package session

import (
	"fmt"

	"github.com/muurk/glucometer/internal/protocol"
)

// State is the protocol state of a session
type State int

const (
	// SendMemoryCommand waits for write readiness to send the dump command
	SendMemoryCommand State = iota
	DeviceType
	SoftwareRevision
	CurrentDateTime
	EntryCount
	ResultLine
	// End expects the checksum trailer
	End
	// Empty swallows trailing blank lines
	Empty
	// Fail is absorbing: no further input is processed
	Fail
	// Done follows a verified commit
	Done
)

var stateNames = [...]string{
	SendMemoryCommand: "SendMemoryCommand",
	DeviceType:        "DeviceType",
	SoftwareRevision:  "SoftwareRevision",
	CurrentDateTime:   "CurrentDateTime",
	EntryCount:        "EntryCount",
	ResultLine:        "ResultLine",
	End:               "End",
	Empty:             "Empty",
	Fail:              "Fail",
	Done:              "Done",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further line can change the session
func (s State) Terminal() bool {
	return s == Fail || s == Done
}

// checksummed reports whether lines received in s are folded into the
// running checksum. The trailer itself and anything after it are excluded,
// as is noise received before the dump command went out.
func (s State) checksummed() bool {
	return s >= DeviceType && s < End
}

// EffectKind is the side effect a transition asks the session to apply
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectSetDevice
	EffectSetFirmware
	EffectSetCount
	EffectAppendEntry
	EffectDropEntry
	EffectCommit
	EffectDiscard
	EffectFail
)

var effectNames = [...]string{
	EffectNone:        "none",
	EffectSetDevice:   "set-device",
	EffectSetFirmware: "set-firmware",
	EffectSetCount:    "set-count",
	EffectAppendEntry: "append-entry",
	EffectDropEntry:   "drop-entry",
	EffectCommit:      "commit",
	EffectDiscard:     "discard",
	EffectFail:        "fail",
}

func (k EffectKind) String() string {
	if k >= 0 && int(k) < len(effectNames) {
		return effectNames[k]
	}
	return fmt.Sprintf("EffectKind(%d)", int(k))
}

// Effect carries the payload for an EffectKind. Only the field matching
// Kind is meaningful; Err explains drops, discards, failures and ignored
// trailers.
type Effect struct {
	Kind     EffectKind
	Device   protocol.DeviceIdentity
	Firmware protocol.FirmwareRevision
	Count    int
	Entry    protocol.MeasurementEntry
	Err      error
}

// counts reports whether the effect consumes one announced result line
func (e Effect) counts() bool {
	return e.Kind == EffectAppendEntry || e.Kind == EffectDropEntry
}
