package logging

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestDefaultLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		level     Level
		wantError bool
		wantWarn  bool
		wantInfo  bool
		wantDebug bool
	}{
		{LevelError, true, false, false, false},
		{LevelWarn, true, true, false, false},
		{LevelInfo, true, true, true, false},
		{LevelDebug, true, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.level)

			logger.Errorf("error message")
			logger.Warnf("warn message")
			logger.Infof("info message")
			logger.Debugf("debug message")

			output := buf.String()
			if got := strings.Contains(output, "ERROR "); got != tt.wantError {
				t.Errorf("Error logged: got %v, want %v", got, tt.wantError)
			}
			if got := strings.Contains(output, "WARN "); got != tt.wantWarn {
				t.Errorf("Warn logged: got %v, want %v", got, tt.wantWarn)
			}
			if got := strings.Contains(output, "INFO "); got != tt.wantInfo {
				t.Errorf("Info logged: got %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(output, "DEBUG "); got != tt.wantDebug {
				t.Errorf("Debug logged: got %v, want %v", got, tt.wantDebug)
			}
		})
	}
}

func TestDefaultLoggerFormatted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelDebug)

	logger.Errorf("error %d", 1)
	logger.Warnf("warn %d", 2)
	logger.Infof("info %d", 3)
	logger.Debugf("debug %d", 4)

	output := buf.String()
	for _, want := range []string{"error 1", "warn 2", "info 3", "debug 4"} {
		if !strings.Contains(output, want) {
			t.Errorf("formatted message %q not found in %q", want, output)
		}
	}
}

func TestDiscardLoggerDoesNotPanic(t *testing.T) {
	Discard.Errorf("error %d", 1)
	Discard.Warnf("warn %d", 1)
	Discard.Infof("info %d", 1)
	Discard.Debugf("debug %d", 1)
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelError, "ERROR"},
		{LevelWarn, "WARN"},
		{LevelInfo, "INFO"},
		{LevelDebug, "DEBUG"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestIsNil(t *testing.T) {
	var nilIface Logger
	var nilPtr *DefaultLogger
	var typedNil Logger = nilPtr
	valid := NewDefaultLogger(LevelWarn)

	if !IsNil(nilIface) {
		t.Error("IsNil should return true for a nil interface")
	}
	if !IsNil(typedNil) {
		t.Error("IsNil should return true for a typed-nil pointer")
	}
	if IsNil(valid) {
		t.Error("IsNil should return false for a valid logger")
	}
}

func TestOrDefault(t *testing.T) {
	var nilPtr *DefaultLogger
	for name, l := range map[string]Logger{"nil interface": nil, "typed-nil": nilPtr} {
		t.Run(name, func(t *testing.T) {
			result := OrDefault(l)
			dl, ok := result.(*DefaultLogger)
			if !ok {
				t.Fatalf("OrDefault(%s) = %T, want *DefaultLogger", name, result)
			}
			if dl.Level() != LevelWarn {
				t.Errorf("OrDefault(%s) level = %s, want WARN", name, dl.Level())
			}
		})
	}

	original := NewDefaultLogger(LevelDebug)
	if result := OrDefault(original); result != original {
		t.Error("OrDefault should return the same logger if valid")
	}
}

func TestDefaultLoggerConcurrent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelDebug)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Errorf("error %d", n)
			logger.Warnf("warn %d", n)
			logger.Infof("info %d", n)
			logger.Debugf("debug %d", n)
		}(i)
	}
	wg.Wait()
}
