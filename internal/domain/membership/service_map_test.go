package membership

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceMap_Resolve(t *testing.T) {
	sm := DefaultServiceMap()

	serviceID, ok := sm.Resolve("home-massage-spa")
	assert.True(t, ok)
	assert.Equal(t, "massage", serviceID)

	serviceID, ok = sm.Resolve("  Home-Massage-Spa ")
	assert.True(t, ok)
	assert.Equal(t, "massage", serviceID)

	_, ok = sm.Resolve("scented-candle")
	assert.False(t, ok)
}

func TestParseServiceMap(t *testing.T) {
	doc := []byte(`
services:
  massage:
    - home-massage-spa
    - Thai-Massage
  cleaning:
    - home-cleaning
`)

	sm, err := ParseServiceMap(doc)
	require.NoError(t, err)

	assert.Len(t, sm, 3)
	serviceID, ok := sm.Resolve("thai-massage")
	assert.True(t, ok)
	assert.Equal(t, "massage", serviceID)
}

func TestParseServiceMap_ConflictingHandle(t *testing.T) {
	doc := []byte(`
services:
  massage: [spa-day]
  salon: [spa-day]
`)

	_, err := ParseServiceMap(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spa-day")
}

func TestLoadServiceMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services:\n  laundry: [laundry-pickup]\n"), 0o600))

	sm, err := LoadServiceMap(path)
	require.NoError(t, err)
	assert.Equal(t, ServiceMap{"laundry-pickup": "laundry"}, sm)

	_, err = LoadServiceMap(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
