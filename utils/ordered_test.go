package utils

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestOrderedMapMarshal(t *testing.T) {
	var m orderedMap[int]
	m.set("b", 1)
	m.set("a", 2)
	m.set("b", 3)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.Equal(t, `{"b":3,"a":2}`, string(data))

	var empty orderedMap[string]
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	require.Equal(t, `{}`, string(data))
}

func TestOrderedMapUnmarshal(t *testing.T) {
	var m orderedMap[string]
	require.NoError(t, json.Unmarshal([]byte(`{"z": "1s", "m": "2s", "a": "3s"}`), &m))
	if diff := cmp.Diff([]string{"z", "m", "a"}, m.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	v, ok := m.Get("m")
	require.True(t, ok)
	require.Equal(t, "2s", v)

	require.Error(t, json.Unmarshal([]byte(`[1,2]`), &m))
	require.Error(t, json.Unmarshal([]byte(`{"a": 1}`), &m))
}
