// Package compiler turns the source of a native contract into an artifact that
// can be deployed on the ledger.
//
// A source is a YAML manifest that declares the name of the contract, the
// native contract that runs it, and its methods. The artifact holds the
// interface of the methods in the usual JSON ABI format, and a bytecode that
// encodes the dispatch table from the methods to the native commands.
//
// Documentation Last Review: 14.10.2026
package compiler

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"sort"
	"strings"

	"go.dedis.ch/lottery"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Param is an input or an output of a method.
type Param struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// MethodSource is the declaration of a method in the source.
type MethodSource struct {
	Name     string  `yaml:"name"`
	Constant bool    `yaml:"constant"`
	Payable  bool    `yaml:"payable"`
	Command  string  `yaml:"command"`
	Inputs   []Param `yaml:"inputs"`
	Outputs  []Param `yaml:"outputs"`
}

// Source is the manifest of a contract.
type Source struct {
	Contract    string         `yaml:"contract"`
	Native      string         `yaml:"native"`
	Argument    string         `yaml:"argument"`
	Constructor string         `yaml:"constructor"`
	Methods     []MethodSource `yaml:"methods"`
}

// Method is an entry of the interface. The JSON fields follow the ABI format.
type Method struct {
	Constant        bool    `json:"constant"`
	Inputs          []Param `json:"inputs"`
	Name            string  `json:"name"`
	Outputs         []Param `json:"outputs"`
	Payable         bool    `json:"payable"`
	StateMutability string  `json:"stateMutability"`
	Type            string  `json:"type"`
}

// Program is the content of the bytecode. Commands maps the methods that
// need a transaction to the command of the native contract, which is passed in
// the transaction argument. The constructor is the command run at deployment,
// if any. Queries lists the read-only methods.
type Program struct {
	Native      string            `json:"native"`
	Argument    string            `json:"argument"`
	Constructor string            `json:"constructor,omitempty"`
	Commands    map[string]string `json:"commands"`
	Queries     []string          `json:"queries"`
}

// Artifact is the output of a compilation.
type Artifact struct {
	Contract  string `json:"contract"`
	Interface string `json:"interface"`
	Bytecode  string `json:"bytecode"`
}

// Methods returns the methods of the interface.
func (a Artifact) Methods() ([]Method, error) {
	var methods []Method

	err := json.Unmarshal([]byte(a.Interface), &methods)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode interface: %v", err)
	}

	return methods, nil
}

// Program decodes the bytecode of the artifact.
func (a Artifact) Program() (Program, error) {
	return Decode(a.Bytecode)
}

// Decode returns the program of a bytecode.
func Decode(bytecode string) (Program, error) {
	if !strings.HasPrefix(bytecode, "0x") {
		return Program{}, xerrors.New("bytecode must start with 0x")
	}

	data, err := hex.DecodeString(bytecode[2:])
	if err != nil {
		return Program{}, xerrors.Errorf("failed to decode bytecode: %v", err)
	}

	var prog Program

	err = json.Unmarshal(data, &prog)
	if err != nil {
		return Program{}, xerrors.Errorf("failed to decode program: %v", err)
	}

	if prog.Native == "" {
		return Program{}, xerrors.New("program without native contract")
	}

	return prog, nil
}

// Compile reads the source file at the path and compiles it.
func Compile(path string) (Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, xerrors.Errorf("failed to read source: %v", err)
	}

	artifact, err := CompileSource(data)
	if err != nil {
		return Artifact{}, xerrors.Errorf("failed to compile '%s': %v", path, err)
	}

	return artifact, nil
}

// CompileSource compiles the source and returns the artifact.
func CompileSource(data []byte) (Artifact, error) {
	var src Source

	err := yaml.UnmarshalStrict(data, &src)
	if err != nil {
		return Artifact{}, xerrors.Errorf("invalid source: %v", err)
	}

	if src.Contract == "" {
		return Artifact{}, xerrors.New("missing contract name")
	}

	if src.Native == "" {
		return Artifact{}, xerrors.New("missing native contract")
	}

	methods := make([]Method, len(src.Methods))

	prog := Program{
		Native:      src.Native,
		Argument:    src.Argument,
		Constructor: src.Constructor,
		Commands:    make(map[string]string),
		Queries:     []string{},
	}

	seen := make(map[string]struct{})

	for i, m := range src.Methods {
		if m.Name == "" {
			return Artifact{}, xerrors.Errorf("method #%d has no name", i)
		}

		_, found := seen[m.Name]
		if found {
			return Artifact{}, xerrors.Errorf("duplicate method '%s'", m.Name)
		}

		seen[m.Name] = struct{}{}

		if m.Constant {
			if m.Payable || m.Command != "" {
				return Artifact{}, xerrors.Errorf("constant method '%s' cannot be a transaction", m.Name)
			}

			prog.Queries = append(prog.Queries, m.Name)
		} else {
			command := m.Command
			if command == "" {
				command = defaultCommand(m.Name)
			}

			prog.Commands[m.Name] = command
		}

		methods[i] = makeMethod(m)
	}

	if prog.Argument == "" && (len(prog.Commands) > 0 || prog.Constructor != "") {
		return Artifact{}, xerrors.New("missing command argument")
	}

	sort.Strings(prog.Queries)

	iface, err := json.Marshal(methods)
	if err != nil {
		return Artifact{}, xerrors.Errorf("failed to encode interface: %v", err)
	}

	code, err := json.Marshal(prog)
	if err != nil {
		return Artifact{}, xerrors.Errorf("failed to encode program: %v", err)
	}

	lottery.Logger.Debug().
		Str("contract", src.Contract).
		Int("methods", len(methods)).
		Msg("contract compiled")

	return Artifact{
		Contract:  src.Contract,
		Interface: string(iface),
		Bytecode:  "0x" + hex.EncodeToString(code),
	}, nil
}

func makeMethod(m MethodSource) Method {
	mutability := "nonpayable"
	if m.Constant {
		mutability = "view"
	} else if m.Payable {
		mutability = "payable"
	}

	return Method{
		Constant:        m.Constant,
		Inputs:          nonNil(m.Inputs),
		Name:            m.Name,
		Outputs:         nonNil(m.Outputs),
		Payable:         m.Payable,
		StateMutability: mutability,
		Type:            "function",
	}
}

// defaultCommand turns a method name into the command of the same name in upper
// case, so that "enterPool" gives "ENTER_POOL".
func defaultCommand(name string) string {
	var b strings.Builder

	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}

		b.WriteRune(r)
	}

	return strings.ToUpper(b.String())
}

func nonNil(params []Param) []Param {
	if params == nil {
		return []Param{}
	}

	return params
}
