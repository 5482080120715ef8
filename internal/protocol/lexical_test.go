package protocol

import (
	"errors"
	"testing"
)

func TestParseBounded(t *testing.T) {
	tests := []struct {
		text     string
		min, max int64
		want     int64
		wantErr  error
	}{
		{text: "0", min: 0, max: 10, want: 0},
		{text: "10", min: 0, max: 10, want: 10},
		{text: "+7", min: 0, max: 10, want: 7},
		{text: "007", min: 0, max: 10, want: 7},
		{text: "-3", min: -5, max: 5, want: -3},
		{text: "11", min: 0, max: 10, wantErr: ErrRange},
		{text: "-1", min: 0, max: 10, wantErr: ErrRange},
		{text: "", min: 0, max: 10, wantErr: ErrMalformedLine},
		{text: "1.5", min: 0, max: 10, wantErr: ErrMalformedLine},
		{text: "5 ", min: 0, max: 10, wantErr: ErrMalformedLine},
		{text: "0x5", min: 0, max: 10, wantErr: ErrMalformedLine},
	}

	for _, tt := range tests {
		got, err := ParseBounded(tt.text, tt.min, tt.max)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseBounded(%q, %d, %d) error = %v, want %v", tt.text, tt.min, tt.max, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseBounded(%q, %d, %d) = %d, %v; want %d", tt.text, tt.min, tt.max, got, err, tt.want)
		}
	}
}

func TestNewTableRejectsUnsorted(t *testing.T) {
	_, err := NewTable(
		TableEntry[int]{"b", 1},
		TableEntry[int]{"a", 2},
	)
	if err == nil {
		t.Fatal("NewTable() accepted unsorted entries")
	}

	_, err = NewTable(
		TableEntry[int]{"a", 1},
		TableEntry[int]{"a", 2},
	)
	if err == nil {
		t.Fatal("NewTable() accepted duplicate keys")
	}
}

func TestTableLookup(t *testing.T) {
	table := MustTable(
		TableEntry[string]{"0.31-P", "short"},
		TableEntry[string]{"0.31-P1-B0764", "long"},
		TableEntry[string]{"1.43       -P", "padded"},
	)

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{key: "0.31-P", want: "short", wantOK: true},
		{key: "0.31-P1-B0764", want: "long", wantOK: true},
		{key: "1.43       -P", want: "padded", wantOK: true},
		{key: "1.43-P", wantOK: false},
		{key: "1.43      -P", wantOK: false},
		{key: "0.31-p", wantOK: false},
		{key: "", wantOK: false},
		{key: "zzz", wantOK: false},
	}

	if entries := table.Entries(); len(entries) != 3 || entries[2].Value != "padded" {
		t.Errorf("Entries() = %v", entries)
	}

	for _, tt := range tests {
		got, ok := table.Lookup(tt.key)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Lookup(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestMonths(t *testing.T) {
	want := map[string]int{
		"Jan": 0, "Feb": 1, "Mar": 2, "Apr": 3, "May": 4, "Jun": 5, "June": 5,
		"Jul": 6, "July": 6, "Aug": 7, "Sep": 8, "Oct": 9, "Nov": 10, "Dec": 11,
	}
	for token, month := range want {
		got, ok := Months.Lookup(token)
		if !ok || got != month {
			t.Errorf("Months.Lookup(%q) = %d, %v; want %d", token, got, ok, month)
		}
	}
	if _, ok := Months.Lookup("Sept"); ok {
		t.Error("Months.Lookup(\"Sept\") should miss")
	}
}

func TestChecksum(t *testing.T) {
	var c Checksum
	c.AddString("A\r\n")
	c.Add([]byte("B END\r\n"))

	var want uint16
	for _, b := range []byte("A\r\nB END\r\n") {
		want += uint16(b)
	}
	if c.Sum() != want {
		t.Errorf("Sum() = %d, want %d", c.Sum(), want)
	}

	if err := c.Verify(want); err != nil {
		t.Errorf("Verify(%d) = %v", want, err)
	}
	if err := c.Verify(want + 1); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Verify(%d) = %v, want ErrChecksumMismatch", want+1, err)
	}

	c.Reset()
	if c.Sum() != 0 {
		t.Errorf("Sum() after Reset = %d", c.Sum())
	}
}

func TestChecksumWraps(t *testing.T) {
	var c Checksum
	line := make([]byte, 300)
	for i := range line {
		line[i] = 0xFF
	}
	c.Add(line)

	want := uint16((300 * 0xFF) % 65536)
	if c.Sum() != want {
		t.Errorf("Sum() = %d, want %d", c.Sum(), want)
	}
	if 300*0xFF < 65536 {
		t.Fatal("test input does not exceed 16 bits")
	}
}

func TestIdentify(t *testing.T) {
	devices := MustTable(
		TableEntry[DeviceIdentity]{"CDMK311-B0764", DeviceFreeStyleFreedom},
		TableEntry[DeviceIdentity]{"DAMH359-63524", DeviceFreeStyleMini},
		TableEntry[DeviceIdentity]{"DBMN169-C4824", DeviceFreeStyleLite},
	)

	id, err := IdentifyDevice(devices, "DAMH359-63524")
	if err != nil || id != DeviceFreeStyleMini {
		t.Errorf("IdentifyDevice() = %v, %v", id, err)
	}

	id, err = IdentifyDevice(devices, "XXXX")
	if id != DeviceUnknown || !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("IdentifyDevice(XXXX) = %v, %v; want unknown", id, err)
	}

	firmware := MustTable(
		TableEntry[FirmwareRevision]{"1.43       -P", Firmware1_43P},
	)
	if _, err := IdentifyFirmware(firmware, "1.43-P"); !errors.Is(err, ErrUnknownFirmware) {
		t.Errorf("IdentifyFirmware(\"1.43-P\") = %v, want ErrUnknownFirmware", err)
	}
}

func TestParseTagNames(t *testing.T) {
	id, err := ParseDeviceIdentity("freestyle-mini")
	if err != nil || id != DeviceFreeStyleMini {
		t.Errorf("ParseDeviceIdentity() = %v, %v", id, err)
	}
	if _, err := ParseDeviceIdentity("unknown"); err == nil {
		t.Error("ParseDeviceIdentity(\"unknown\") should fail")
	}

	rev, err := ParseFirmwareRevision("4.0100-P")
	if err != nil || rev != Firmware4_0100P {
		t.Errorf("ParseFirmwareRevision() = %v, %v", rev, err)
	}
}
