package logutils

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetLoggerLevel(t *testing.T) {
	defer SetLoggerLevel("info")

	SetLoggerLevel("debug")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	SetLoggerLevel("loud")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestSetLoggerFormat(t *testing.T) {
	defer SetLoggerFormat("text")

	SetLoggerFormat("json")
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	SetLoggerFormat("logfmt")
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}
