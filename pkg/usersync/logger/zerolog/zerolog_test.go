package zerolog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mihaimyh/usersync/pkg/usersync"
)

func TestLogger_WritesFields(t *testing.T) {
	output := bytes.Buffer{}
	zlog := zerolog.New(&output)
	logger := NewLogger(zlog)

	logger.Info("user created", usersync.Field{Key: "user_id", Value: "u1"})

	if output.Len() == 0 {
		t.Fatal("expected log output")
	}
	if !strings.Contains(output.String(), `"user_id":"u1"`) {
		t.Errorf("expected field in output, got %s", output.String())
	}
}

func TestLogger_Levels(t *testing.T) {
	output := bytes.Buffer{}
	zlog := zerolog.New(&output)
	logger := NewLogger(zlog)

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")

	lines := strings.Count(output.String(), "\n")
	if lines != 4 {
		t.Errorf("expected 4 log lines, got %d", lines)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	output := bytes.Buffer{}
	zlog := zerolog.New(&output).Level(zerolog.WarnLevel)
	logger := NewLogger(zlog)

	logger.Debug("hidden")
	logger.Warn("visible")

	if strings.Contains(output.String(), "hidden") {
		t.Error("debug message should be filtered at warn level")
	}
	if !strings.Contains(output.String(), "visible") {
		t.Error("warn message should be written")
	}
}
