package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	t.Run("rejects unknown level", func(t *testing.T) {
		err := Setup(LogConfig{Level: "loud", Output: "stderr"})
		assert.Error(t, err)
	})

	t.Run("writes json to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		require.NoError(t, Setup(LogConfig{Level: "debug", Format: "json", Output: path}))

		log := WithFile("ingest", "deposits.csv")
		log.Info().Msg("hello")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"component":"ingest"`)
		assert.Contains(t, string(data), `"file":"deposits.csv"`)
		assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	})
}
