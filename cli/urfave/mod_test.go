package urfave

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	ucli "github.com/urfave/cli/v2"
	"go.dedis.ch/lottery/cli"
)

func TestBuild(t *testing.T) {
	builder := NewBuilder("test", nil)
	builder.SetUsage("test application")
	builder.SetWriter(io.Discard)

	app := builder.Build().(*ucli.App)

	require.Equal(t, "test", app.Name)
	require.Equal(t, "test application", app.Usage)

	err := app.Run([]string{"test"})
	require.NoError(t, err)
}

func TestSetCommand(t *testing.T) {
	builder := NewBuilder("test", nil)

	builder.SetCommand("second")
	builder.SetCommand("first")

	app := builder.Build().(*ucli.App)

	// urfave adds by default the -help command. This is why we expect 3.
	require.Len(t, app.Commands, 3)
	require.Equal(t, "first", app.Commands[0].Name)
	require.Equal(t, "second", app.Commands[1].Name)
}

func TestCommandBuilder(t *testing.T) {
	builder := NewBuilder("test", nil)
	cmd := builder.SetCommand("first")

	fakeAction := func(flags cli.Flags) error {
		return nil
	}

	cmd.SetAction(fakeAction)
	cmd.SetDescription("first action")
	cmd.SetFlags(cli.StringFlag{
		Name:     "arg",
		Usage:    "this is a test arg",
		Required: true,
		Value:    "default",
	})
	cmd.SetSubCommand("second")

	require.Len(t, builder.commands, 1)
	require.Len(t, builder.flags, 0)

	cmd2 := builder.commands["first"]
	require.Equal(t, "first action", cmd2.description)
	require.Len(t, cmd2.flags, 1)
	require.Len(t, cmd2.subcommands, 1)
}

func TestGlobalFlags(t *testing.T) {
	builder := NewBuilder("test", nil,
		cli.StringFlag{Name: "config", Value: "default"},
		cli.IntFlag{Name: "count", Value: 2},
	)

	buffer := new(bytes.Buffer)
	builder.SetWriter(buffer)

	var config string
	var count int
	var set bool

	cmd := builder.SetCommand("run")
	cmd.SetFlags(cli.BoolFlag{Name: "verbose"})
	cmd.SetAction(func(flags cli.Flags) error {
		config = flags.String("config")
		count = flags.Int("count")
		set = flags.Bool("verbose") && flags.IsSet("verbose")
		return nil
	})

	err := builder.Build().Run([]string{"test", "--config", "abc", "run", "--verbose"})
	require.NoError(t, err)
	require.Equal(t, "abc", config)
	require.Equal(t, 2, count)
	require.True(t, set)
}

func TestBuildFlags(t *testing.T) {
	in := []cli.Flag{
		cli.StringFlag{
			Name:     "name1",
			Usage:    "usage1",
			Required: true,
			Value:    "value1",
		},
		cli.DurationFlag{
			Name:     "name3",
			Usage:    "usage3",
			Required: true,
			Value:    time.Minute,
		},
		cli.IntFlag{
			Name:     "name4",
			Usage:    "usage4",
			Required: true,
			Value:    1,
		},
		cli.Int64Flag{
			Name:  "name5",
			Usage: "usage5",
			Value: 5,
		},
		cli.BoolFlag{
			Name:  "name6",
			Usage: "usage6",
		},
	}

	out := buildFlags(in)
	require.Len(t, out, 5)
	require.IsType(t, &ucli.Int64Flag{}, out[3])
	require.IsType(t, &ucli.BoolFlag{}, out[4])
}

func TestBuildFlags_Panic(t *testing.T) {
	defer func() {
		r := recover()
		require.Equal(t, "flag type '<nil>' not supported", r)
	}()

	buildFlags([]cli.Flag{nil})
}

func TestMakeAction(t *testing.T) {
	res := makeAction(nil)
	require.Nil(t, res)

	fakeAction := func(flags cli.Flags) error {
		return nil
	}

	res = makeAction(fakeAction)
	require.NotNil(t, res)

	out := res(&ucli.Context{})
	require.NoError(t, out)
}
