package logging

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "debug", want: zapcore.DebugLevel},
		{in: "INFO", want: zapcore.InfoLevel},
		{in: "warning", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected no-op logger")
	}
}

func TestLogLineAndTransition(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogLine("s1", "rx", []byte("mem\r\n"))
	LogTransition("s1", "DeviceType", "SoftwareRevision")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["ascii"] != "mem.." {
		t.Errorf("ascii = %v, want %q", fields["ascii"], "mem..")
	}
	if fields["hex"] != "6d656d0d0a" {
		t.Errorf("hex = %v", fields["hex"])
	}
	if got := entries[1].ContextMap()["to"]; got != "SoftwareRevision" {
		t.Errorf("to = %v", got)
	}
}

func TestDumpTruncates(t *testing.T) {
	data := make([]byte, maxDump+10)
	if got := asciiDump(data); len(got) != maxDump {
		t.Errorf("asciiDump length = %d, want %d", len(got), maxDump)
	}
	if got := hexDump(data); len(got) != 2*maxDump+3 {
		t.Errorf("hexDump length = %d", len(got))
	}
}

func TestConcurrentUseWithoutInitialize(t *testing.T) {
	SetLogger(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Info("session started", zap.Int("n", n))
			LogTransition("s", "DeviceType", "SoftwareRevision")
		}(i)
	}
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	Info("swapped")
	wg.Wait()
	SetLogger(nil)

	if GetLogger() == nil {
		t.Fatal("GetLogger() returned nil after reset")
	}
	if logs.FilterMessage("swapped").Len() != 1 {
		t.Error("expected message on swapped-in logger")
	}
}
