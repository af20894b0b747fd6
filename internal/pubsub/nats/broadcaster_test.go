package nats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/nevasik7/alerting/logger"

	"pricefeed/internal/config"
)

// MockLogger implements logger.Logger for tests
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Debugf(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) Info(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Warnf(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) Error(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Fatal(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Fatalf(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) Panic(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Panicf(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) WithField(key string, value interface{}) logger.Logger {
	m.Called(key, value)
	return m
}

func (m *MockLogger) WithFields(fields map[string]interface{}) logger.Logger {
	m.Called(fields)
	return m
}

// ------------------------ tests not real connection ------------------------

func TestNew_NilConfig(t *testing.T) {
	mockLogger := new(MockLogger)

	client, err := New(mockLogger, nil)

	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Equal(t, "nats config is required", err.Error())
}

func TestNew_EmptyURL(t *testing.T) {
	mockLogger := new(MockLogger)

	client, err := New(mockLogger, &config.NATSConfig{})

	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Equal(t, "nats url is required", err.Error())
}

func TestPublish_NilConnection(t *testing.T) {
	client := &Client{nc: nil, log: new(MockLogger)}

	err := client.Publish(context.Background(), "pair:1", map[string]int{"x": 1})
	assert.Error(t, err)
}

func TestHealth_NilConnection(t *testing.T) {
	client := &Client{nc: nil, log: new(MockLogger)}

	assert.False(t, client.Ready())
	assert.Error(t, client.Health(context.Background()))
}

func TestClose_NilConnection(t *testing.T) {
	mockLogger := new(MockLogger)
	client := &Client{nc: nil, log: mockLogger}

	assert.NoError(t, client.Close())
	mockLogger.AssertNotCalled(t, "Errorf", mock.Anything, mock.Anything)
	mockLogger.AssertNotCalled(t, "Infof", mock.Anything, mock.Anything)
}

// ------------------------ tests in-memory nats connection ------------------------

func runTestWithInMemoryNATS(t *testing.T, testFunc func(*testing.T, *server.Server, string)) {
	t.Helper()

	opts := natsserver.DefaultTestOptions
	opts.Port = -1 // random port
	s := natsserver.RunServer(&opts)
	defer s.Shutdown()

	time.Sleep(100 * time.Millisecond)

	testFunc(t, s, s.ClientURL())
}

func TestNew_Success(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)

		client, err := New(mockLogger, &config.NATSConfig{URL: url})

		require.NoError(t, err)
		require.NotNil(t, client)
		assert.True(t, client.Ready())
		assert.NoError(t, client.Health(context.Background()))

		client.nc.Close()
	})
}

func TestPublish_AppliesBroadcastPrefix(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)

		client, err := New(mockLogger, &config.NATSConfig{URL: url, BroadcastPrefix: "candles"})
		require.NoError(t, err)
		defer client.nc.Close()

		sub, err := client.Conn().SubscribeSync("candles.pair:1")
		require.NoError(t, err)
		require.NoError(t, client.Conn().Flush())

		payload := map[string]any{"pair_id": 1, "cycle": 7}
		require.NoError(t, client.Publish(context.Background(), "pair:1", payload))

		msg, err := sub.NextMsg(2 * time.Second)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, float64(7), got["cycle"])
	})
}

func TestPublish_NoPrefix(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)
		defer client.nc.Close()

		sub, err := client.Conn().SubscribeSync("pair:2")
		require.NoError(t, err)
		require.NoError(t, client.Conn().Flush())

		require.NoError(t, client.Publish(context.Background(), "pair:2", "hello"))

		msg, err := sub.NextMsg(2 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, `"hello"`, string(msg.Data))
	})
}

func TestPublish_CancelledContext(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)
		defer client.nc.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = client.Publish(ctx, "pair:1", "x")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClose_Graceful(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "NATS connection closed gracefully", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)

		assert.NoError(t, client.Close())
		assert.False(t, client.Ready())
		assert.Equal(t, nats.CLOSED, client.nc.Status())

		mockLogger.AssertExpectations(t)
	})
}

func TestClose_Idempotent(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "NATS connection closed gracefully", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)

		assert.NoError(t, client.Close())
		assert.NoError(t, client.Close())
		assert.NoError(t, client.Close())

		mockLogger.AssertNumberOfCalls(t, "Infof", 1)
	})
}
