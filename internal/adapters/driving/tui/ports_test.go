package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPorts_Validate(t *testing.T) {
	var nilPorts *Ports
	assert.ErrorIs(t, nilPorts.Validate(), ErrInvalidPorts)
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingResolver)
	assert.ErrorIs(t, (&Ports{Search: &mockSearchService{}}).Validate(), ErrMissingResolver)

	ports := newSeededPorts(t)
	assert.NoError(t, ports.Validate())

	ports.Search = nil
	assert.NoError(t, ports.Validate(), "search is optional")
}
