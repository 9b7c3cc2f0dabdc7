package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEvent(t *testing.T) {
	payload := map[string]string{"signature": "abc"}

	data, err := EncodeEvent(7, payload)
	require.NoError(t, err)

	eventType, body, err := DecodeEventType(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), eventType)

	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "abc", out["signature"])
}

func TestDecodeEventTypeShort(t *testing.T) {
	_, _, err := DecodeEventType([]byte{1, 2})
	assert.Error(t, err)
}

func TestPartitionHashBytes(t *testing.T) {
	key := make([]byte, 64)
	for i := range key {
		key[i] = byte(i)
	}

	p := PartitionHashBytes(key, 4)
	assert.Less(t, p, uint32(4))
	// 同一 key 的分区稳定
	assert.Equal(t, p, PartitionHashBytes(key, 4))

	// 过短的 key 与零分区数都落到 0 号分区
	assert.Equal(t, uint32(0), PartitionHashBytes(key[:10], 4))
	assert.Equal(t, uint32(0), PartitionHashBytes(key, 0))
}
