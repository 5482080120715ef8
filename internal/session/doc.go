// Package session implements the FreeStyle memory-dump state machine.
//
// A Session is created per connected meter. The transport feeds it complete
// raw lines (terminators included) through HandleLine and write readiness
// through HandleWriteReady. Each line is folded into the running checksum,
// stripped, and passed to Transition, a pure function returning the next
// state and an Effect. The Session applies the effect: it records the meter
// identity, buffers entries, and commits or discards the batch when the
// trailer arrives.
//
//	DeviceType -> SoftwareRevision -> CurrentDateTime -> EntryCount
//	    -> ResultLine (xN) -> End -> Done
//
// Handshake errors move the session to Fail, after which all input is
// ignored. A Session is not safe for concurrent use; the driver owns it.
package session
