// Package protocol implements the FreeStyle meter line protocol primitives.
//
// This package owns everything that can be decided from a single line of the
// memory dump without knowing where in the session that line arrived: bounded
// integer parsing, sorted lookup tables, the four field grammars, and the
// running transcript checksum.
//
// # Protocol Overview
//
// After receiving the "mem" command the meter answers with one ASCII line per
// message:
//
//	CDMK311-B0764                  device type (serial prefix)
//	0.31-P                         software revision (padding is significant)
//	Jan  21 2010 20:40:00          current device time
//	234                            number of results (1-450)
//	234  Jan  17 2010 00:39 00 0x00
//	...                            one line per result
//	1A2F  END                      hex checksum and terminator
//
// The checksum is the 16-bit sum of every byte the meter sent before the
// trailer line, line terminators included.
//
// # Usage Example
//
//	entry, err := protocol.ParseEntry("120 Jan  5 2011 08:15")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(entry.Glucose, entry.Timestamp.Format())
//
//	var sum protocol.Checksum
//	sum.Add([]byte("CDMK311-B0764\r\n"))
//
// # Error Handling
//
// Every parser returns a *ProtocolError carrying an ErrorType. Use errors.Is
// with the sentinel values (ErrRange, ErrMalformedLine, ...) to classify.
//
// # Thread Safety
//
// Parsers and tables are stateless after construction and safe for concurrent
// use. Checksum is a value type owned by a single session.
package protocol
