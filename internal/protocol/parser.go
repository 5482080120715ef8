package protocol

import (
	"strconv"
	"strings"
)

// skipPad drops the single padding space the meter puts in front of
// right-aligned columns ("234  Jan  17 ...")
func skipPad(s string) string {
	return strings.TrimPrefix(s, " ")
}

// next splits s at the first sep. A missing separator is a malformed line.
func next(s, sep, field string) (tok, rest string, err error) {
	tok, rest, found := strings.Cut(s, sep)
	if !found {
		return "", "", NewMalformedError(field, s, "missing "+strconv.Quote(sep)+" delimiter")
	}
	return tok, rest, nil
}

// parseDate decodes "Mon  DD YYYY " and returns the remainder after the year
func parseDate(s string) (DateTime, string, error) {
	var dt DateTime

	tok, rest, err := next(s, " ", "month")
	if err != nil {
		return dt, "", err
	}
	month, ok := Months.Lookup(tok)
	if !ok {
		return dt, "", NewMalformedError("month", tok, "unknown month")
	}
	dt.Month = month

	tok, rest, err = next(skipPad(rest), " ", "day")
	if err != nil {
		return dt, "", err
	}
	if dt.Day, err = parseField("day", tok, 1, 31); err != nil {
		return dt, "", err
	}

	tok, rest, err = next(rest, " ", "year")
	if err != nil {
		return dt, "", err
	}
	year, err := parseField("year", tok, 0, MaxYear)
	if err != nil {
		return dt, "", err
	}
	dt.Year = year - YearOffset

	return dt, rest, nil
}

// ParseEntry decodes a result line: "<glucose> <Mon> <DD> <YYYY> <HH>:<MM>".
// Anything after the minute field (the meter appends "00 0x00") is ignored.
func ParseEntry(line string) (MeasurementEntry, error) {
	var entry MeasurementEntry

	tok, rest, err := next(line, " ", "glucose")
	if err != nil {
		return MeasurementEntry{}, err
	}
	glucose, err := parseField("glucose", tok, 0, MaxGlucose)
	if err != nil {
		return MeasurementEntry{}, err
	}

	dt, rest, err := parseDate(skipPad(rest))
	if err != nil {
		return MeasurementEntry{}, err
	}

	tok, rest, err = next(rest, ":", "hour")
	if err != nil {
		return MeasurementEntry{}, err
	}
	if dt.Hour, err = parseField("hour", tok, 0, 23); err != nil {
		return MeasurementEntry{}, err
	}

	tok, _, _ = strings.Cut(rest, " ")
	if dt.Minute, err = parseField("minute", tok, 0, 59); err != nil {
		return MeasurementEntry{}, err
	}

	entry.Glucose = glucose
	entry.Timestamp = dt
	return entry, nil
}

// ParseDeviceTime decodes the current-time line: "<Mon> <DD> <YYYY> <HH>:<MM>:<SS>"
func ParseDeviceTime(line string) (DateTime, error) {
	dt, rest, err := parseDate(line)
	if err != nil {
		return DateTime{}, err
	}

	tok, rest, err := next(rest, ":", "hour")
	if err != nil {
		return DateTime{}, err
	}
	if dt.Hour, err = parseField("hour", tok, 0, 23); err != nil {
		return DateTime{}, err
	}

	tok, rest, err = next(rest, ":", "minute")
	if err != nil {
		return DateTime{}, err
	}
	if dt.Minute, err = parseField("minute", tok, 0, 59); err != nil {
		return DateTime{}, err
	}

	if dt.Second, err = parseField("second", rest, 0, 59); err != nil {
		return DateTime{}, err
	}
	return dt, nil
}

// ParseEntryCount decodes the number-of-results line (1-450)
func ParseEntryCount(line string) (int, error) {
	return parseField("entry count", line, 1, MaxEntries)
}

// ParseChecksumTrailer decodes the final line: "<hex> END".
// The suffix must be exactly END; the hex value must be non-empty, fully
// consumed and fit in 16 bits. A 0x prefix is tolerated.
func ParseChecksumTrailer(line string) (uint16, error) {
	hexText, suffix, err := next(line, " ", "trailer")
	if err != nil {
		return 0, err
	}
	suffix = skipPad(suffix)
	if suffix != TrailerWord {
		return 0, NewMalformedError("trailer", suffix, "expected "+TrailerWord)
	}

	digits := hexText
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		digits = digits[2:]
	}
	if digits == "" {
		return 0, NewMalformedError("checksum", hexText, "empty checksum")
	}

	v, err := strconv.ParseUint(digits, 16, 16)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, NewRangeError("checksum", hexText, 0, 0xFFFF)
		}
		return 0, &ProtocolError{
			Type:    ErrTypeMalformedLine,
			Field:   "checksum",
			Value:   hexText,
			Message: "not a hexadecimal number",
			Err:     err,
		}
	}
	return uint16(v), nil
}
