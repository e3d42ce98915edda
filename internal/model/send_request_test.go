package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestinationListAcceptsObjectOrArray(t *testing.T) {
	var fromObject SendRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"source": "a@b.c",
		"destination": {"to": ["amos@example.org"]}
	}`), &fromObject))
	require.Len(t, fromObject.Destination, 1)
	assert.Equal(t, []string{"amos@example.org"}, fromObject.Destination[0].To)

	var fromArray SendRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"source": "a@b.c",
		"destination": [{"to": ["one@example.org"]}, {"to": ["two@example.org"]}]
	}`), &fromArray))
	require.Len(t, fromArray.Destination, 2)
}

func TestDestinationRecipients(t *testing.T) {
	d := Destination{
		To:  []string{"a@example.org"},
		CC:  []string{"b@example.org"},
		BCC: []string{"c@example.org"},
	}
	assert.Equal(t, []string{"a@example.org", "b@example.org", "c@example.org"}, d.Recipients())
}
