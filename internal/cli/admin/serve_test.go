package admin

import (
	"context"
	"testing"

	"github.com/cloo-solutions/vsearch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArchiveStorage_DisabledWithoutS3(t *testing.T) {
	archive, err := newArchiveStorage(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, archive)
}

func TestServeCmd_Flags(t *testing.T) {
	cmd := ServeCmd()
	for _, name := range []string{"port", "backend", "no-migrate"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "p", cmd.Flags().Lookup("port").Shorthand)
}

func TestHistoryCmd_RequiresDatabase(t *testing.T) {
	t.Setenv("VSEARCH_DATABASE_URL", "")

	cmd := HistoryCmd()
	cmd.SetArgs([]string{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VSEARCH_DATABASE_URL required")
}
