package session

import (
	"errors"
	"testing"

	"github.com/muurk/glucometer/internal/protocol"
)

func TestTransition(t *testing.T) {
	d := abfr(t)
	base := TransitionContext{Dialect: d}

	withCount := func(expected, seen int) TransitionContext {
		c := base
		c.Expected, c.Seen = expected, seen
		return c
	}
	withSum := func(sum uint16, p Policy) TransitionContext {
		c := base
		c.Checksum, c.Policy = sum, p
		return c
	}

	tests := []struct {
		name     string
		state    State
		ctx      TransitionContext
		line     string
		want     State
		wantKind EffectKind
		wantErr  error
	}{
		{name: "known device", state: DeviceType, ctx: base, line: "CDMK311-B0764", want: SoftwareRevision, wantKind: EffectSetDevice},
		{name: "unknown device", state: DeviceType, ctx: base, line: "CDMK311", want: Fail, wantKind: EffectFail, wantErr: protocol.ErrUnknownDevice},
		{name: "padded firmware", state: SoftwareRevision, ctx: base, line: "1.43       -P", want: CurrentDateTime, wantKind: EffectSetFirmware},
		{name: "unpadded firmware", state: SoftwareRevision, ctx: base, line: "1.43-P", want: Fail, wantKind: EffectFail, wantErr: protocol.ErrUnknownFirmware},
		{name: "device time", state: CurrentDateTime, ctx: base, line: "Jan  21 2010 20:40:00", want: EntryCount, wantKind: EffectNone},
		{name: "bad device time", state: CurrentDateTime, ctx: base, line: "Jan 21 2010", want: Fail, wantKind: EffectFail, wantErr: protocol.ErrMalformedLine},
		{name: "entry count", state: EntryCount, ctx: base, line: "450", want: ResultLine, wantKind: EffectSetCount},
		{name: "entry count above max", state: EntryCount, ctx: base, line: "451", want: Fail, wantKind: EffectFail, wantErr: protocol.ErrRange},
		{name: "first of two entries", state: ResultLine, ctx: withCount(2, 0), line: "120 Jan  5 2011 08:15", want: ResultLine, wantKind: EffectAppendEntry},
		{name: "last entry", state: ResultLine, ctx: withCount(2, 1), line: "120 Jan  5 2011 08:15", want: End, wantKind: EffectAppendEntry},
		{name: "malformed last entry still ends", state: ResultLine, ctx: withCount(1, 0), line: "junk", want: End, wantKind: EffectDropEntry, wantErr: protocol.ErrMalformedLine},
		{name: "matching trailer", state: End, ctx: withSum(0x1A2F, Policy{}), line: "1A2F END", want: Done, wantKind: EffectCommit},
		{name: "mismatching trailer", state: End, ctx: withSum(0x1A2E, Policy{}), line: "1A2F END", want: End, wantKind: EffectDiscard, wantErr: protocol.ErrChecksumMismatch},
		{name: "mismatching trailer strict", state: End, ctx: withSum(0x1A2E, Policy{FailOnChecksumMismatch: true}), line: "1A2F END", want: Fail, wantKind: EffectDiscard, wantErr: protocol.ErrChecksumMismatch},
		{name: "malformed trailer stalls", state: End, ctx: withSum(0x1A2F, Policy{}), line: "1A2F ENDX", want: End, wantKind: EffectNone, wantErr: protocol.ErrMalformedLine},
		{name: "empty ignores", state: Empty, ctx: base, line: "anything", want: Empty, wantKind: EffectNone},
		{name: "done ignores", state: Done, ctx: base, line: "1A2F END", want: Done, wantKind: EffectNone},
		{name: "fail absorbs", state: Fail, ctx: base, line: "CDMK311-B0764", want: Fail, wantKind: EffectNone},
		{name: "input before command", state: SendMemoryCommand, ctx: base, line: "CDMK311-B0764", want: SendMemoryCommand, wantKind: EffectNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, effect := Transition(tt.state, tt.ctx, tt.line)
			if got != tt.want {
				t.Errorf("Transition(%v, %q) state = %v, want %v", tt.state, tt.line, got, tt.want)
			}
			if effect.Kind != tt.wantKind {
				t.Errorf("Transition(%v, %q) effect = %v, want %v", tt.state, tt.line, effect.Kind, tt.wantKind)
			}
			if tt.wantErr == nil && effect.Err != nil {
				t.Errorf("Transition(%v, %q) unexpected error %v", tt.state, tt.line, effect.Err)
			}
			if tt.wantErr != nil && !errors.Is(effect.Err, tt.wantErr) {
				t.Errorf("Transition(%v, %q) error = %v, want %v", tt.state, tt.line, effect.Err, tt.wantErr)
			}
		})
	}
}

func TestTransitionPayload(t *testing.T) {
	ctx := TransitionContext{Dialect: abfr(t), Expected: 3}

	_, e := Transition(DeviceType, ctx, "DBMN169-C4824")
	if e.Device != protocol.DeviceFreeStyleLite {
		t.Errorf("Device = %v", e.Device)
	}

	_, e = Transition(SoftwareRevision, ctx, "0.31-P1-B0764")
	if e.Firmware != protocol.Firmware0_31P1B0764 {
		t.Errorf("Firmware = %v", e.Firmware)
	}

	_, e = Transition(EntryCount, ctx, "17")
	if e.Count != 17 {
		t.Errorf("Count = %d", e.Count)
	}

	_, e = Transition(ResultLine, ctx, "87 June 30 2012 23:59")
	want := protocol.MeasurementEntry{Glucose: 87, Timestamp: protocol.DateTime{Month: 5, Day: 30, Year: 112, Hour: 23, Minute: 59}}
	if e.Entry != want {
		t.Errorf("Entry = %+v, want %+v", e.Entry, want)
	}
}

func TestStateString(t *testing.T) {
	if got := ResultLine.String(); got != "ResultLine" {
		t.Errorf("String() = %q", got)
	}
	if got := State(42).String(); got != "State(42)" {
		t.Errorf("String() = %q", got)
	}
	if !Fail.Terminal() || !Done.Terminal() || End.Terminal() {
		t.Error("Terminal() mismatch")
	}
}
