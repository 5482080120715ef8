package protocol

import (
	"fmt"
	"time"
)

// Protocol limits
const (
	MaxEntries  = 450  // Storage capacity of the meter, upper bound on a batch
	MaxGlucose  = 400  // Highest reading the meter reports (mg/dL)
	YearOffset  = 1900 // DateTime.Year is stored relative to this
	MaxYear     = 9999
	TrailerWord = "END"
)

// DateTime is a calendar timestamp as reported by the meter.
// Month is 0-based and Year is stored minus YearOffset.
type DateTime struct {
	Month  int
	Day    int
	Year   int
	Hour   int
	Minute int
	Second int
}

// FullYear returns the four-digit year
func (dt DateTime) FullYear() int {
	return dt.Year + YearOffset
}

// Time converts the timestamp to a time.Time in loc.
// Out-of-range days (e.g. Feb 31) are normalized by time.Date.
func (dt DateTime) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(dt.FullYear(), time.Month(dt.Month+1), dt.Day, dt.Hour, dt.Minute, dt.Second, 0, loc)
}

// Format renders the timestamp in asctime layout ("Sun Jan 17 00:39:00 2010")
// without the trailing newline. The fields are printed as received, only the
// weekday is derived.
func (dt DateTime) Format() string {
	weekday := dt.Time(time.UTC).Weekday().String()[:3]
	month := time.Month(dt.Month + 1).String()[:3]
	return fmt.Sprintf("%s %s %2d %02d:%02d:%02d %d",
		weekday, month, dt.Day, dt.Hour, dt.Minute, dt.Second, dt.FullYear())
}

func (dt DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		dt.FullYear(), dt.Month+1, dt.Day, dt.Hour, dt.Minute, dt.Second)
}

// MeasurementEntry is one glucose reading from the meter's memory
type MeasurementEntry struct {
	Glucose    int      // mg/dL, 0-400
	Timestamp  DateTime // Seconds are always zero for entries
	PlasmaType int      // Not sent by the meter; always zero
}

func (e MeasurementEntry) String() string {
	return fmt.Sprintf("Entry{glucose=%d, time=%s}", e.Glucose, e.Timestamp)
}

// DeviceIdentity identifies the meter model from its serial prefix
type DeviceIdentity int

const (
	DeviceUnknown DeviceIdentity = iota
	// CDMK311-B0764, FreeStyle Freedom Lite
	DeviceFreeStyleFreedom
	// DAMH359-63524
	DeviceFreeStyleMini
	// DBMN169-C4824
	DeviceFreeStyleLite
)

var deviceNames = map[DeviceIdentity]string{
	DeviceUnknown:          "unknown",
	DeviceFreeStyleFreedom: "freestyle-freedom-lite",
	DeviceFreeStyleMini:    "freestyle-mini",
	DeviceFreeStyleLite:    "freestyle-lite",
}

func (d DeviceIdentity) String() string {
	if name, ok := deviceNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DeviceIdentity(%d)", int(d))
}

// ParseDeviceIdentity resolves a tag name as written in the dialect catalog
func ParseDeviceIdentity(name string) (DeviceIdentity, error) {
	for id, n := range deviceNames {
		if n == name && id != DeviceUnknown {
			return id, nil
		}
	}
	return DeviceUnknown, fmt.Errorf("unknown device tag %q", name)
}

// FirmwareRevision identifies the meter software version
type FirmwareRevision int

const (
	FirmwareUnknown FirmwareRevision = iota
	Firmware4_0100P
	Firmware0_31P1B0764
	Firmware0_31P
	Firmware1_43P
)

var firmwareNames = map[FirmwareRevision]string{
	FirmwareUnknown:     "unknown",
	Firmware4_0100P:     "4.0100-P",
	Firmware0_31P1B0764: "0.31-P1-B0764",
	Firmware0_31P:       "0.31-P",
	Firmware1_43P:       "1.43-P",
}

func (f FirmwareRevision) String() string {
	if name, ok := firmwareNames[f]; ok {
		return name
	}
	return fmt.Sprintf("FirmwareRevision(%d)", int(f))
}

// ParseFirmwareRevision resolves a tag name as written in the dialect catalog
func ParseFirmwareRevision(name string) (FirmwareRevision, error) {
	for rev, n := range firmwareNames {
		if n == name && rev != FirmwareUnknown {
			return rev, nil
		}
	}
	return FirmwareUnknown, fmt.Errorf("unknown firmware tag %q", name)
}

// IdentifyDevice looks a device type line up in table.
// Returns DeviceUnknown and an ErrUnknownDevice error on a miss.
func IdentifyDevice(table *Table[DeviceIdentity], line string) (DeviceIdentity, error) {
	if id, ok := table.Lookup(line); ok && id != DeviceUnknown {
		return id, nil
	}
	return DeviceUnknown, &ProtocolError{Type: ErrTypeUnknownDevice, Field: "device type", Value: line}
}

// IdentifyFirmware looks a software revision line up in table.
// Returns FirmwareUnknown and an ErrUnknownFirmware error on a miss.
func IdentifyFirmware(table *Table[FirmwareRevision], line string) (FirmwareRevision, error) {
	if rev, ok := table.Lookup(line); ok && rev != FirmwareUnknown {
		return rev, nil
	}
	return FirmwareUnknown, &ProtocolError{Type: ErrTypeUnknownFirmware, Field: "software revision", Value: line}
}
