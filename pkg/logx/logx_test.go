package logx

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNew_WarnfWritesMessage(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.InfoLevel)

	log.Warnf("skipping %s: %d bytes", "big.bin", 42)

	require.Contains(t, buf.String(), "skipping big.bin: 42 bytes")
}

func TestNew_BelowLevelIsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.WarnLevel)

	log.Debugf("should not appear")

	require.Empty(t, buf.String())
}

func TestNop_DiscardsOutput(t *testing.T) {
	log := Nop()
	require.NotPanics(t, func() {
		log.Warnf("anything")
		log.Errorf("anything")
	})
}

func TestWrap_UsesProvidedLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	log := Wrap(base)

	log.Errorf("boom %d", 1)
	require.Contains(t, buf.String(), "boom 1")
}
