package logging

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		t.Run(env, func(t *testing.T) {
			logger, err := NewLogger(&Config{
				FilePath: filepath.Join(t.TempDir(), "app.log"),
				Level:    "debug",
				Env:      env,
				AppID:    "learnpath",
			})
			require.NoError(t, err)
			logger.Info("hello")
			assert.NoError(t, logger.Sync())
		})
	}
}

func TestNewLoggerUnknownLevel(t *testing.T) {
	_, err := NewLogger(&Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestExtractLoggerFromContext(t *testing.T) {
	fallback := zap.NewExample()
	assert.Same(t, fallback, ExtractLoggerFromContext(context.Background(), fallback))
	assert.NotNil(t, ExtractLoggerFromContext(context.Background(), nil))

	scoped := zap.NewNop()
	ctx := SetLoggerInContext(context.Background(), scoped)
	assert.Same(t, scoped, ExtractLoggerFromContext(ctx, fallback))
}
