package log

import (
	"bytes"
	stdlog "log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugfRespectsFlag(t *testing.T) {
	var b bytes.Buffer
	DebugLogger.SetOutput(&b)
	defer DebugLogger.SetOutput(nil)

	SetDebug(false)
	Debugf("hidden %d", 1)
	assert.Empty(t, b.String())

	SetDebug(true)
	defer SetDebug(false)
	Debugf("shown %d", 2)
	assert.Contains(t, b.String(), "shown 2")
}

func TestSuppressOutput(t *testing.T) {
	var b bytes.Buffer
	InfoLogger.SetOutput(&b)
	defer InfoLogger.SetOutput(nil)

	SuppressOutput(true)
	Infof("swallowed")
	assert.Empty(t, b.String())

	SuppressOutput(false)
	InfoLogger.SetOutput(&b)
	Infof("visible")
	assert.Contains(t, b.String(), "visible")
}

func TestErrorWithCallDepth(t *testing.T) {
	var b bytes.Buffer
	testLogger := stdlog.New(&b, "ERROR: ", stdLogFlags)
	prev := ErrorLogger
	ErrorLogger = testLogger
	defer func() { ErrorLogger = prev }()

	ErrorWithCallDepth(assertErr{"boom"}, 0)
	assert.Contains(t, b.String(), "boom")
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
