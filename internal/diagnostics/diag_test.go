package diagnostics

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransmit(t *testing.T) {
	d := Transmit(errors.New("bus gone"), 186)
	assert.Equal(t, Err, d.Severity)
	assert.Equal(t, CodeTransmit, d.Code)
	assert.Equal(t, "bus gone", d.Detail)
	assert.Equal(t, map[string]any{"pixels": 186}, d.Evidence)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"evidence":{"pixels":186}`)
}
