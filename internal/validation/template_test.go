package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arpTemplateBody = `Value PROTOCOL (\S+)
Value ADDRESS (\d+\.\d+\.\d+\.\d+)
Value AGE (\S+)
Value HWADDR (\S+)
Value TYPE (\S+)
Value INTERFACE (\S+)

Start
  ^${PROTOCOL}\s+${ADDRESS}\s+${AGE}\s+${HWADDR}\s+${TYPE}\s+${INTERFACE}\s*$ -> Record
  ^.*$
`

func TestParseTemplate_CompilesValuesAndRules(t *testing.T) {
	ct, err := parseTemplate(arpTemplateBody)
	require.NoError(t, err)
	assert.Len(t, ct.values, 6)
	assert.Contains(t, ct.states, "Start")
}

func TestCompiledTemplate_RunProducesRecords(t *testing.T) {
	ct, err := parseTemplate(arpTemplateBody)
	require.NoError(t, err)

	text := "Internet  10.0.0.1    -          aabb.ccdd.eeff  ARPA   Gi0/0\n" +
		"Internet  10.0.0.2    5          aabb.ccdd.1122  ARPA   Gi0/1\n"

	records := ct.run(text)
	require.Len(t, records, 2)
	assert.Equal(t, "10.0.0.1", records[0]["ADDRESS"])
	assert.Equal(t, "Gi0/1", records[1]["INTERFACE"])
}

func TestParseTemplate_RejectsMissingStateBlocks(t *testing.T) {
	_, err := parseTemplate("Value FOO (\\S+)\n")
	assert.Error(t, err)
}

func TestParseTemplate_RejectsUndefinedPlaceholder(t *testing.T) {
	_, err := parseTemplate("Start\n  ^${MISSING}\\s*$ -> Record\n")
	assert.Error(t, err)
}
