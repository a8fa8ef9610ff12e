package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level zerolog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(level)
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func TestSlogForwardsToZerolog(t *testing.T) {
	buf := capture(t, zerolog.InfoLevel)

	l := Slog("engine").With("shop", "kirana").WithGroup("pay")
	l.Info("payment recorded", "amount", "Rs 12.50", "bills", 2, "error", errors.New("none"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "payment recorded", line["message"])
	assert.Equal(t, "engine", line["component"])
	assert.Equal(t, "kirana", line["shop"])
	assert.Equal(t, "Rs 12.50", line["pay.amount"])
	assert.Equal(t, float64(2), line["pay.bills"])
	assert.Equal(t, "none", line["pay.error"])
}

func TestSlogRespectsGlobalLevel(t *testing.T) {
	buf := capture(t, zerolog.WarnLevel)

	l := Slog("engine")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Error("shown", slog.String("op", "record_payment"))
	assert.Contains(t, buf.String(), "record_payment")
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Setup(LogConfig{Level: "loud"}))
}
