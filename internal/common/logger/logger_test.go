package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestInitLevels(t *testing.T) {
	Init("test-service", false)
	assert.Equal(t, zerolog.InfoLevel, log.Logger.GetLevel())

	Init("test-service", true)
	assert.Equal(t, zerolog.DebugLevel, log.Logger.GetLevel())
}

func TestHelpersReturnEvents(t *testing.T) {
	Init("test-service", false)

	assert.NotNil(t, Info())
	assert.NotNil(t, Warn())
	assert.NotNil(t, Error())
	assert.NotNil(t, Debug())
}
