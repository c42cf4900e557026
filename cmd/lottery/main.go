// Package main implements the command line of a lottery running on a local
// simulated ledger. The state of the ledger is kept in a database inside the
// configuration folder so that the commands can be chained.
//
//	lottery --config /tmp/lottery accounts
//	lottery --config /tmp/lottery deploy --account 0
//	lottery --config /tmp/lottery enter --instance 0x... --account 1 --value 0.02ether
//	lottery --config /tmp/lottery players --instance 0x...
//	lottery --config /tmp/lottery pick --instance 0x... --account 0
//	lottery --config /tmp/lottery balance --account 1
//
// The default randomness derives the winner from the block and the players. It
// is NOT cryptographically secure: use "--randomness crypto" for a secure pick.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/urfave"
	"go.dedis.ch/lottery/contracts/lottery"
	"go.dedis.ch/lottery/core/bank"
)

type config struct {
	Writer io.Writer
}

func main() {
	err := run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	return runWithCfg(args, config{Writer: os.Stdout})
}

func runWithCfg(args []string, cfg config) error {
	builder := urfave.NewBuilder("lottery", nil,
		cli.StringFlag{
			Name:  "config",
			Usage: "path to the folder of the ledger database",
			Value: ".lottery",
		},
		cli.StringFlag{
			Name:  "genesis",
			Usage: "path to a YAML genesis, the default genesis is used if empty",
		},
		cli.StringFlag{
			Name:  "randomness",
			Usage: "source of the draws: ledger (NOT secure), seeded or crypto",
			Value: "ledger",
		},
		cli.Int64Flag{
			Name:  "seed",
			Usage: "seed of the seeded randomness",
			Value: 1,
		},
		cli.StringFlag{
			Name:  "minimum",
			Usage: "minimum contribution of the deployed lotteries",
			Value: bank.FormatValue(lottery.MinimumEntry),
		},
		cli.DurationFlag{
			Name:  "timeout",
			Usage: "maximum duration of a command",
			Value: 10 * time.Second,
		},
		cli.StringFlag{
			Name:  "metrics",
			Usage: "path of a file where the metrics are written after the command",
		},
	)

	builder.SetUsage("run a lottery on a local simulated ledger")
	builder.SetWriter(cfg.Writer)

	out := cfg.Writer

	cmd := builder.SetCommand("compile")
	cmd.SetDescription("compile a contract source and print the artifact")
	cmd.SetFlags(sourceFlag)
	cmd.SetAction(compileAction{out: out}.Execute)

	cmd = builder.SetCommand("accounts")
	cmd.SetDescription("list the accounts of the ledger")
	cmd.SetAction(accountsAction{out: out}.Execute)

	cmd = builder.SetCommand("deploy")
	cmd.SetDescription("deploy a lottery, the account becomes the manager")
	cmd.SetFlags(accountFlag, sourceFlag)
	cmd.SetAction(deployAction{out: out}.Execute)

	cmd = builder.SetCommand("enter")
	cmd.SetDescription("enter the lottery by contributing a value")
	cmd.SetFlags(instanceFlag, accountFlag, cli.StringFlag{
		Name:     "value",
		Usage:    "contribution, for instance 0.02ether",
		Required: true,
	})
	cmd.SetAction(enterAction{out: out}.Execute)

	cmd = builder.SetCommand("pick")
	cmd.SetDescription("pick the winner of the lottery")
	cmd.SetFlags(instanceFlag, accountFlag)
	cmd.SetAction(pickAction{out: out}.Execute)

	cmd = builder.SetCommand("players")
	cmd.SetDescription("list the players of the lottery")
	cmd.SetFlags(instanceFlag)
	cmd.SetAction(playersAction{out: out}.Execute)

	cmd = builder.SetCommand("balance")
	cmd.SetDescription("print the balance of an account or an instance")
	cmd.SetFlags(cli.IntFlag{
		Name:  "account",
		Usage: "index of the account",
		Value: -1,
	}, cli.StringFlag{
		Name:  "instance",
		Usage: "address of the instance",
	})
	cmd.SetAction(balanceAction{out: out}.Execute)

	return builder.Build().Run(args)
}

var (
	sourceFlag = cli.StringFlag{
		Name:  "source",
		Usage: "path to the contract source, the lottery is used if empty",
	}

	accountFlag = cli.IntFlag{
		Name:  "account",
		Usage: "index of the account that signs the transaction",
	}

	instanceFlag = cli.StringFlag{
		Name:     "instance",
		Usage:    "address of the instance",
		Required: true,
	}
)
