package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		enabled       zapcore.Level
		disabled      zapcore.Level
	}{
		{"info", "console", zapcore.InfoLevel, zapcore.DebugLevel},
		{"debug", "json", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"warn", "", zapcore.WarnLevel, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			l, err := New(tt.level, tt.format)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.disabled))
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("loud", "console")
	assert.True(t, errs.IsValue(err))

	_, err = New("info", "xml")
	assert.True(t, errs.IsValue(err))
}

func TestMust_FallsBackToNop(t *testing.T) {
	l := Must("loud", "console")
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}
