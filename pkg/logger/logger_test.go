package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithWriter(t *testing.T) {
	saved := Logger
	t.Cleanup(func() { Logger = saved })

	var buf bytes.Buffer
	InitWithWriter("stock-ledger-test", false, "warn", &buf)

	Info(context.Background()).Msg("dropped")
	Warn(context.Background()).Str("sku", "B-1").Msg("kept")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "B-1", line["sku"])
	assert.Equal(t, "stock-ledger-test", line["service"])
}

func TestInitWithWriterDevelopment(t *testing.T) {
	saved := Logger
	t.Cleanup(func() { Logger = saved })

	var buf bytes.Buffer
	InitWithWriter("stock-ledger-test", true, "debug", &buf)
	Debug(context.Background()).Msg("console line")

	assert.Contains(t, buf.String(), "console line")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}
