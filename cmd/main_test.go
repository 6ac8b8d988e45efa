package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestExitCode(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	assert.Equal(t, 0, exitCode(log, nil))
	assert.Zero(t, logs.Len())

	assert.Equal(t, 1, exitCode(log, errors.New("open database: refused")))
	entries := logs.FilterMessage("portal stopped").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "open database: refused", entries[0].ContextMap()["error"])
	}
}
