package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultContent(t *testing.T) {
	c := Default()

	assert.Len(t, c.Cards, 4)
	require.Len(t, c.Fumigation, 5)
	assert.Equal(t, "Lahore", c.Fumigation[0].City)
	assert.Equal(t, 85, c.Fumigation[0].Progress)
	assert.Equal(t, 5, c.Fumigation[0].EstimatedDays)
	assert.Equal(t, 31.5497, c.Fumigation[0].Latitude)
	assert.Len(t, c.Neighbourhoods, 10)
	assert.Equal(t, "Gulberg", c.Neighbourhoods[0])
	assert.Len(t, c.Tips, 5)
	assert.Contains(t, c.Symptoms, "Muscle Pain")
	assert.Len(t, c.Myths, 4)
	assert.NotEmpty(t, c.Myths[3].Reality)
}

func TestParseRejectsBrokenContent(t *testing.T) {
	_, err := Parse([]byte("fumigation: [unclosed"))
	assert.Error(t, err)

	_, err = Parse([]byte("neighbourhoods: [Gulberg]\n"))
	assert.ErrorContains(t, err, "fumigation")

	_, err = Parse([]byte("neighbourhoods: [Gulberg]\nfumigation:\n  - {city: Nowhere, progress: 10, estimated_days: 0}\n"))
	assert.ErrorContains(t, err, "Nowhere")
}
