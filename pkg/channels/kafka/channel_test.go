package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerList_PrefersServiceVariable(t *testing.T) {
	t.Setenv(brokersEnv, "kafka-a:9092,kafka-b:9092")
	t.Setenv("KAFKA_BROKERS", "legacy:9092")

	brokers, err := brokerList()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-a:9092", "kafka-b:9092"}, brokers)
}

func TestBrokerList_FallsBackToConventionalVariable(t *testing.T) {
	t.Setenv(brokersEnv, "")
	t.Setenv("KAFKA_BROKERS", "shared:9092")

	brokers, err := brokerList()
	require.NoError(t, err)
	assert.Equal(t, []string{"shared:9092"}, brokers)
}

func TestBrokerList_ErrorsWhenUnset(t *testing.T) {
	t.Setenv(brokersEnv, "")
	t.Setenv("KAFKA_BROKERS", "")

	_, err := brokerList()
	assert.Error(t, err)
}
