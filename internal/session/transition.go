package session

import (
	"fmt"

	"github.com/muurk/glucometer/internal/dialect"
	"github.com/muurk/glucometer/internal/protocol"
)

// Policy selects between lenient and strict handling of bad data
type Policy struct {
	// StrictEntries fails the session on a malformed result line.
	// When false the line is dropped but still counted.
	StrictEntries bool

	// FailOnChecksumMismatch fails the session on a well-formed trailer
	// that does not match. When false the batch is discarded and the
	// session stays in End.
	FailOnChecksumMismatch bool
}

// TransitionContext is the read-only session data a transition needs
type TransitionContext struct {
	Dialect  *dialect.Dialect
	Policy   Policy
	Expected int    // announced entry count, 0 before EntryCount
	Seen     int    // result lines consumed so far
	Checksum uint16 // running sum including every line before the trailer
}

func fail(err error) Effect {
	return Effect{Kind: EffectFail, Err: err}
}

// Transition computes the next state and the effect of receiving line in
// state. line has its terminators stripped and is never empty. Transition has
// no side effects.
func Transition(state State, ctx TransitionContext, line string) (State, Effect) {
	switch state {
	case DeviceType:
		id, err := protocol.IdentifyDevice(ctx.Dialect.Devices, line)
		if err != nil {
			return Fail, fail(err)
		}
		return SoftwareRevision, Effect{Kind: EffectSetDevice, Device: id}

	case SoftwareRevision:
		rev, err := protocol.IdentifyFirmware(ctx.Dialect.Firmware, line)
		if err != nil {
			return Fail, fail(err)
		}
		return CurrentDateTime, Effect{Kind: EffectSetFirmware, Firmware: rev}

	case CurrentDateTime:
		// Validated only, the meter clock is not stored
		if _, err := protocol.ParseDeviceTime(line); err != nil {
			return Fail, fail(err)
		}
		return EntryCount, Effect{}

	case EntryCount:
		n, err := protocol.ParseEntryCount(line)
		if err != nil {
			return Fail, fail(err)
		}
		if n > ctx.Dialect.MaxEntries {
			return Fail, fail(protocol.NewRangeError("entry count", line, 1, int64(ctx.Dialect.MaxEntries)))
		}
		return ResultLine, Effect{Kind: EffectSetCount, Count: n}

	case ResultLine:
		next := ResultLine
		if ctx.Seen+1 >= ctx.Expected {
			next = End
		}
		entry, err := protocol.ParseEntry(line)
		if err != nil {
			if ctx.Policy.StrictEntries {
				return Fail, fail(err)
			}
			return next, Effect{Kind: EffectDropEntry, Err: err}
		}
		return next, Effect{Kind: EffectAppendEntry, Entry: entry}

	case End:
		trailer, err := protocol.ParseChecksumTrailer(line)
		if err != nil {
			return End, Effect{Err: err}
		}
		if trailer != ctx.Checksum {
			err := protocol.NewChecksumError(trailer, ctx.Checksum)
			if ctx.Policy.FailOnChecksumMismatch {
				return Fail, Effect{Kind: EffectDiscard, Err: err}
			}
			return End, Effect{Kind: EffectDiscard, Err: err}
		}
		return Done, Effect{Kind: EffectCommit}

	case SendMemoryCommand, Empty, Done, Fail:
		return state, Effect{}

	default:
		return Fail, fail(fmt.Errorf("invalid session state %v", state))
	}
}
