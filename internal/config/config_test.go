package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHECKOUT_MAX_ATTEMPTS", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("CHECKOUT_GUEST_USERS", "")
	t.Setenv("SERVER_WRITE_TIMEOUT", "")
	t.Setenv("SERVER_REQUEST_TIMEOUT", "")
	t.Setenv("OUTBOX_POLL_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Checkout.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Checkout.RetryBackoff)
	assert.False(t, cfg.Checkout.GuestUsers)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "orders", cfg.Kafka.Topic)
	assert.Greater(t, cfg.Server.WriteTimeout, cfg.Server.RequestTimeout)
	assert.Equal(t, time.Second, cfg.Kafka.PollInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHECKOUT_MAX_ATTEMPTS", "5")
	t.Setenv("CHECKOUT_RETRY_BACKOFF", "10ms")
	t.Setenv("CHECKOUT_GUEST_USERS", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Checkout.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Checkout.RetryBackoff)
	assert.True(t, cfg.Checkout.GuestUsers)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsZeroAttempts(t *testing.T) {
	t.Setenv("CHECKOUT_MAX_ATTEMPTS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNonPositivePollInterval(t *testing.T) {
	for _, value := range []string{"0s", "-1s"} {
		t.Run(value, func(t *testing.T) {
			t.Setenv("OUTBOX_POLL_INTERVAL", value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "OUTBOX_POLL_INTERVAL")
		})
	}
}

func TestLoadRejectsZeroBatchSize(t *testing.T) {
	t.Setenv("OUTBOX_BATCH_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsWriteTimeoutShorterThanRequestTimeout(t *testing.T) {
	t.Setenv("SERVER_REQUEST_TIMEOUT", "30s")
	t.Setenv("SERVER_WRITE_TIMEOUT", "10s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_WRITE_TIMEOUT")
}
