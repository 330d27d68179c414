package logger

import (
	"bytes"
	"testing"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWriter(&buf, "WARNING"))
	t.Cleanup(func() { _ = Init("INFO") })

	log := logging.MustGetLogger("test")
	log.Infof("hidden %d", 1)
	log.Warningf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "WARN")
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, InitWriter(&bytes.Buffer{}, "LOUD"))
}
