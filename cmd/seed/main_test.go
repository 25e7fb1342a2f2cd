package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSeedCommand_DryRun(t *testing.T) {
	const org = "6f1c1f6e-3a55-4c2b-9a43-2f3d1c9b7a10"
	out, err := execute(t, "--dry-run", "--org", org, "--seed", "42",
		"--first-year", "2021", "--harvests", "3", "--instruments", "7", "--line-items", "9", "--scenarios", "1")
	require.NoError(t, err)

	var sum summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, org, sum.OrganizationID)
	assert.Equal(t, []string{"2021/22", "2022/23", "2023/24"}, sum.Harvests)
	assert.Equal(t, 7, sum.Instruments)
	assert.Equal(t, 9, sum.LineItems)
	assert.NotEmpty(t, sum.Scenarios)
}

func TestSeedCommand_InvalidOrg(t *testing.T) {
	_, err := execute(t, "--dry-run", "--org", "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid organization id")
}

func TestSeedCommand_RejectsArguments(t *testing.T) {
	_, err := execute(t, "--dry-run", "extra")
	assert.Error(t, err)
}

func TestSeedCommand_Defaults(t *testing.T) {
	cmd := newRootCmd()
	flag := cmd.Flags().Lookup("dry-run")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
	assert.Equal(t, "5", cmd.Flags().Lookup("harvests").DefValue)
}
