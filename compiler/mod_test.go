package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSource = `
contract: Counter
native: go.dedis.ch/lottery.Counter
argument: counter:command
constructor: INIT
methods:
  - name: count
    constant: true
    outputs:
      - name: ""
        type: uint256
  - name: increment
    payable: true
  - name: resetAll
    command: RESET
`

func TestCompileSource(t *testing.T) {
	artifact, err := CompileSource([]byte(testSource))
	require.NoError(t, err)
	require.Equal(t, "Counter", artifact.Contract)

	require.JSONEq(t, `[
		{"constant":true,"inputs":[],"name":"count","outputs":[{"name":"","type":"uint256"}],
		 "payable":false,"stateMutability":"view","type":"function"},
		{"constant":false,"inputs":[],"name":"increment","outputs":[],
		 "payable":true,"stateMutability":"payable","type":"function"},
		{"constant":false,"inputs":[],"name":"resetAll","outputs":[],
		 "payable":false,"stateMutability":"nonpayable","type":"function"}
	]`, artifact.Interface)

	require.Regexp(t, "^0x[0-9a-f]+$", artifact.Bytecode)

	prog, err := artifact.Program()
	require.NoError(t, err)
	require.Equal(t, "go.dedis.ch/lottery.Counter", prog.Native)
	require.Equal(t, "counter:command", prog.Argument)
	require.Equal(t, "INIT", prog.Constructor)
	require.Equal(t, map[string]string{"increment": "INCREMENT", "resetAll": "RESET"}, prog.Commands)
	require.Equal(t, []string{"count"}, prog.Queries)

	methods, err := artifact.Methods()
	require.NoError(t, err)
	require.Len(t, methods, 3)
	require.Equal(t, "increment", methods[1].Name)
}

func TestCompileSource_Invalid(t *testing.T) {
	_, err := CompileSource([]byte("contract: [a"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid source")

	_, err = CompileSource([]byte("contract: A\nnative: B\nunknown: 1"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid source")

	_, err = CompileSource([]byte("native: B"))
	require.EqualError(t, err, "missing contract name")

	_, err = CompileSource([]byte("contract: A"))
	require.EqualError(t, err, "missing native contract")

	_, err = CompileSource([]byte("contract: A\nnative: B\nmethods:\n  - constant: true"))
	require.EqualError(t, err, "method #0 has no name")

	_, err = CompileSource([]byte("contract: A\nnative: B\nmethods:\n  - name: a\n  - name: a"))
	require.EqualError(t, err, "duplicate method 'a'")

	_, err = CompileSource([]byte("contract: A\nnative: B\nmethods:\n  - name: a\n    constant: true\n    payable: true"))
	require.EqualError(t, err, "constant method 'a' cannot be a transaction")

	_, err = CompileSource([]byte("contract: A\nnative: B\nmethods:\n  - name: a"))
	require.EqualError(t, err, "missing command argument")

	_, err = CompileSource([]byte("contract: A\nnative: B\nconstructor: C"))
	require.EqualError(t, err, "missing command argument")

	artifact, err := CompileSource([]byte("contract: A\nnative: B\nmethods:\n  - name: a\n    constant: true"))
	require.NoError(t, err)
	require.Equal(t, "[{\"constant\":true,\"inputs\":[],\"name\":\"a\",\"outputs\":[],"+
		"\"payable\":false,\"stateMutability\":\"view\",\"type\":\"function\"}]", artifact.Interface)
}

func TestCompile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSource), os.ModePerm))

	artifact, err := Compile(path)
	require.NoError(t, err)
	require.Equal(t, "Counter", artifact.Contract)

	_, err = Compile(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read source")

	require.NoError(t, os.WriteFile(path, []byte("native: B"), os.ModePerm))

	_, err = Compile(path)
	require.EqualError(t, err, "failed to compile '"+path+"': missing contract name")
}

func TestDecode(t *testing.T) {
	_, err := Decode("abc")
	require.EqualError(t, err, "bytecode must start with 0x")

	_, err = Decode("0xzz")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode bytecode")

	_, err = Decode("0x7b")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode program")

	_, err = Decode("0x7b7d")
	require.EqualError(t, err, "program without native contract")
}

func TestArtifact_Methods(t *testing.T) {
	_, err := Artifact{Interface: "{"}.Methods()
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode interface")
}

func TestDefaultCommand(t *testing.T) {
	require.Equal(t, "ENTER", defaultCommand("enter"))
	require.Equal(t, "PICK_WINNER", defaultCommand("pickWinner"))
}
