package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportSuccess(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, New(&out, strings.NewReader(""), false).Report(false))
	assert.Equal(t, "SUCCESS\a\n", out.String())
}

func TestReportFailureWaitsForAcknowledgement(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	in := strings.NewReader("\nleftover")
	require.NoError(t, New(&out, in, true).Report(true))

	assert.Equal(t, "ERROR\a\a\nPress Enter to exit.\n", out.String())
}

func TestReportToleratesClosedInput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	assert.NoError(t, New(&out, strings.NewReader(""), true).Report(false))
}
