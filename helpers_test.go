package podbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMemLimitSuffixes(t *testing.T) {
	cases := map[string]int64{
		"256m": 256 * 1024 * 1024,
		"1g":   1024 * 1024 * 1024,
		"512k": 512 * 1024,
		"1G":   1024 * 1024 * 1024,
	}
	for input, want := range cases {
		got, err := ParseMemLimit(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseMemLimitRejectsInvalid(t *testing.T) {
	for _, input := range []string{"", "not-a-size", "-5m", "0"} {
		_, err := ParseMemLimit(input)
		assert.Error(t, err, input)
	}
}

func TestNormalizeImageRef(t *testing.T) {
	ref, err := normalizeImageRef("alpine")
	require.NoError(t, err)
	assert.Contains(t, ref, "alpine")
	assert.Contains(t, ref, ":latest")
}

func TestSplitRepoTag(t *testing.T) {
	repo, tag := splitRepoTag("myregistry.local/app:v2")
	assert.Equal(t, "v2", tag)
	assert.Contains(t, repo, "app")
}

func TestComputeCPUPercent(t *testing.T) {
	pct := computeCPUPercent(200, 1000, 2)
	assert.InDelta(t, 40.0, pct, 0.001)
}

func TestComputeCPUPercentZeroSystemDelta(t *testing.T) {
	assert.Equal(t, 0.0, computeCPUPercent(100, 0, 2))
}

func TestSentinelRegexMatchesExpectedShape(t *testing.T) {
	m := sentinelRE.FindStringSubmatch("PBX_0123456789abcdef_0__")
	require.NotNil(t, m)
	assert.Equal(t, "0123456789abcdef", m[1])
	assert.Equal(t, "0", m[2])
}

func TestSentinelRegexRejectsMalformedLine(t *testing.T) {
	assert.Nil(t, sentinelRE.FindStringSubmatch("not a sentinel line"))
	assert.Nil(t, sentinelRE.FindStringSubmatch("PBX_short_0__"))
}

func TestSentinelRegexAllowsNegativeExitCode(t *testing.T) {
	m := sentinelRE.FindStringSubmatch("PBX_0123456789abcdef_-1__")
	require.NotNil(t, m)
	assert.Equal(t, "-1", m[2])
}
