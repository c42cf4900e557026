package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLottery_Scenario(t *testing.T) {
	dir := t.TempDir()
	metrics := filepath.Join(dir, "metrics.prom")

	run := func(args ...string) string {
		out := new(bytes.Buffer)
		args = append([]string{"lottery", "--config", dir, "--randomness", "seeded",
			"--metrics", metrics}, args...)

		err := runWithCfg(args, config{Writer: out})
		require.NoError(t, err)

		return out.String()
	}

	lines := strings.Split(strings.TrimSpace(run("accounts")), "\n")
	require.Len(t, lines, 10)

	player := strings.Fields(lines[1])[1]
	require.Equal(t, "100ether", strings.Fields(lines[1])[2])

	out := run("deploy", "--account", "0")
	require.Contains(t, out, "deployed Lottery at 0x")

	instance := strings.Fields(out)[3]

	out = run("enter", "--instance", instance, "--account", "1", "--value", "0.02ether")
	require.Contains(t, out, "entered with 0.02ether")

	require.Equal(t, "0\t"+player+"\n", run("players", "--instance", instance))
	require.Equal(t, "0.02ether\n", run("balance", "--instance", instance))

	out = run("pick", "--instance", instance, "--account", "0")
	require.Contains(t, out, player+" won 0.02ether")

	require.Equal(t, "", run("players", "--instance", instance))
	require.Equal(t, "0ether\n", run("balance", "--instance", instance))
	require.Equal(t, "100ether\n", run("balance", "--account", "1"))

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	require.Contains(t, string(data), "lottery_ledger_transactions_total")
}

func TestLottery_Compile(t *testing.T) {
	out := new(bytes.Buffer)

	err := runWithCfg([]string{"lottery", "compile"}, config{Writer: out})
	require.NoError(t, err)
	require.Contains(t, out.String(), `"contract": "Lottery"`)
	require.Contains(t, out.String(), `"bytecode": "0x`)

	err = runWithCfg([]string{"lottery", "compile", "--source", "/unknown.yaml"}, config{Writer: out})
	require.EqualError(t, err, "failed to compile: failed to read source: open /unknown.yaml: no such file or directory")
}

func TestLottery_Failures(t *testing.T) {
	dir := t.TempDir()
	out := new(bytes.Buffer)

	run := func(args ...string) error {
		return runWithCfg(append([]string{"lottery", "--config", dir}, args...), config{Writer: out})
	}

	err := run("--randomness", "dice", "accounts")
	require.EqualError(t, err, "unknown randomness 'dice'")

	err = run("--minimum", "abc", "accounts")
	require.EqualError(t, err, "invalid minimum: invalid value 'abc'")

	err = run("deploy", "--account", "42")
	require.EqualError(t, err, "account 42 out of range [0, 10)")

	err = run("players", "--instance", "0xzz")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid address '0xzz'")

	err = run("balance")
	require.EqualError(t, err, "either --account or --instance is required")

	genesis := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(genesis, []byte("accounts: -3\n"), os.ModePerm))

	err = run("--metrics", filepath.Join(t.TempDir(), "missing", "metrics.prom"), "accounts")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to write metrics")

	err = run("--genesis", genesis, "accounts")
	require.EqualError(t, err, "invalid genesis: accounts must be in [0, 1000], got -3")

	require.NoError(t, run("deploy", "--account", "0"))

	fields := strings.Fields(out.String())
	instance := fields[len(fields)-4]

	err = run("enter", "--instance", instance, "--account", "1", "--value", "1wei")
	require.Error(t, err)
	require.Contains(t, err.Error(), "insufficient contribution")

	err = run("pick", "--instance", instance, "--account", "1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not the manager")
}
