package logging

import (
	"bytes"
	"testing"

	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logging.LogLevel
		wantErr bool
	}{
		{"", logging.LogLevelWarn, false},
		{"DEBUG", logging.LogLevelDebug, false},
		{"trace", logging.LogLevelTrace, false},
		{"off", logging.LogLevelDisabled, false},
		{"loud", logging.LogLevelDisabled, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewFactory(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFactory(&buf, "info")
	require.NoError(t, err)

	log := f.NewLogger("sha1")
	log.Debug("hidden")
	log.Infof("provider %s", "portable")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "provider portable")

	_, err = NewFactory(&buf, "bogus")
	assert.Error(t, err)
}

func TestLoggerNilFactory(t *testing.T) {
	log := Logger(nil, "checksum")
	require.NotNil(t, log)
	log.Errorf("dropped %d", 1)
}
