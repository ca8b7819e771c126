package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCoordinator_MissingRedisURLFailsValidationBeforeDialing(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REGION", "us-east")
	t.Setenv("INSTANCE_ID", "coordinator-1")

	_, err := InitCoordinator(context.Background())
	require.Error(t, err)

	var validationErr ConfigValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "REDIS_URL", validationErr.Field)
}

func TestInitCoordinator_MissingInstanceIDFailsValidation(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://127.0.0.1:0")
	t.Setenv("REGION", "us-east")
	t.Setenv("INSTANCE_ID", "")

	_, err := InitCoordinator(context.Background())
	require.Error(t, err)

	var validationErr ConfigValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "INSTANCE_ID", validationErr.Field)
}

func TestInitExecutor_MissingRegionFailsValidationBeforeDialing(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://127.0.0.1:0")
	t.Setenv("REGION", "")
	t.Setenv("INSTANCE_ID", "executor-1")

	_, err := InitExecutor(context.Background())
	require.Error(t, err)

	var validationErr ConfigValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "REGION", validationErr.Field)
}
