package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeFormatter(t *testing.T) {
	e := &logrus.Entry{
		Time:    time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "put failed",
		Data:    logrus.Fields{"table": "pf_ordenes", "error": errors.New("boom")},
	}
	b, err := (&PipeFormatter{}).Format(e)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02 03:04:05.006 | WARNING | put failed error=boom table=pf_ordenes\n", string(b))
}

func TestNew_WritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Dir: dir, Name: "genorders", Level: "debug"})
	require.NoError(t, err)
	logger.WithField("count", 3).Info("orders generated")

	b, err := os.ReadFile(filepath.Join(dir, "genorders.log"))
	require.NoError(t, err)
	line := string(b)
	assert.True(t, strings.Contains(line, " | INFO | orders generated count=3"), line)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}
