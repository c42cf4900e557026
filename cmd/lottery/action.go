package main

import (
	"encoding/json"
	"fmt"
	"io"

	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/contracts/lottery"
	"go.dedis.ch/lottery/core/access"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/core/ledger"
	"golang.org/x/xerrors"
)

const (
	methodEnter      = "enter"
	methodPickWinner = "pickWinner"
)

// compileAction prints the artifact of a contract source.
type compileAction struct {
	out io.Writer
}

func (a compileAction) Execute(flags cli.Flags) error {
	artifact, err := loadArtifact(flags.Path("source"))
	if err != nil {
		return xerrors.Errorf("failed to compile: %v", err)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to encode artifact: %v", err)
	}

	fmt.Fprintln(a.out, string(data))

	return nil
}

// accountsAction lists the accounts and their balance.
type accountsAction struct {
	out io.Writer
}

func (a accountsAction) Execute(flags cli.Flags) (err error) {
	s, err := openSession(flags)
	if err != nil {
		return err
	}

	defer closeSession(s, &err)

	for i, signer := range s.ledger.Accounts() {
		text, err := signer.GetPublicKey().MarshalText()
		if err != nil {
			return xerrors.Errorf("failed to marshal identity: %v", err)
		}

		balance, err := s.ledger.BalanceOf(s.ctx, signer.GetPublicKey())
		if err != nil {
			return xerrors.Errorf("failed to read balance: %v", err)
		}

		fmt.Fprintf(a.out, "%d\t%s\t%s\n", i, text, bank.FormatValue(balance))
	}

	return nil
}

// deployAction deploys an instance and prints its address.
type deployAction struct {
	out io.Writer
}

func (a deployAction) Execute(flags cli.Flags) (err error) {
	artifact, err := loadArtifact(flags.Path("source"))
	if err != nil {
		return xerrors.Errorf("failed to compile: %v", err)
	}

	s, err := openSession(flags)
	if err != nil {
		return err
	}

	defer closeSession(s, &err)

	signer, err := s.account(flags)
	if err != nil {
		return err
	}

	h, receipt, err := s.ledger.Deploy(s.ctx, artifact, ledger.SendOptions{From: signer})
	if err != nil {
		return xerrors.Errorf("failed to deploy: %w", err)
	}

	fmt.Fprintf(a.out, "deployed %s at %v in block %d\n", artifact.Contract, h, receipt.BlockIndex)

	return nil
}

// enterAction sends an entry to the lottery.
type enterAction struct {
	out io.Writer
}

func (a enterAction) Execute(flags cli.Flags) (err error) {
	h, err := ledger.ParseHandle(flags.String("instance"))
	if err != nil {
		return err
	}

	value, err := bank.ParseValue(flags.String("value"))
	if err != nil {
		return xerrors.Errorf("invalid value: %v", err)
	}

	s, err := openSession(flags)
	if err != nil {
		return err
	}

	defer closeSession(s, &err)

	signer, err := s.account(flags)
	if err != nil {
		return err
	}

	opts := ledger.SendOptions{From: signer, Value: value}

	receipt, err := s.ledger.Send(s.ctx, h, methodEnter, opts)
	if err != nil {
		return xerrors.Errorf("failed to enter: %w", err)
	}

	fmt.Fprintf(a.out, "entered with %s in block %d\n", bank.FormatValue(value), receipt.BlockIndex)

	return nil
}

// pickAction picks the winner and prints who received the prize.
type pickAction struct {
	out io.Writer
}

func (a pickAction) Execute(flags cli.Flags) (err error) {
	h, err := ledger.ParseHandle(flags.String("instance"))
	if err != nil {
		return err
	}

	s, err := openSession(flags)
	if err != nil {
		return err
	}

	defer closeSession(s, &err)

	signer, err := s.account(flags)
	if err != nil {
		return err
	}

	prize, err := s.ledger.BalanceOf(s.ctx, h)
	if err != nil {
		return xerrors.Errorf("failed to read prize: %v", err)
	}

	receipt, err := s.ledger.Send(s.ctx, h, methodPickWinner, ledger.SendOptions{From: signer})
	if err != nil {
		return xerrors.Errorf("failed to pick: %w", err)
	}

	winner, err := s.ledger.Call(s.ctx, h, lottery.QueryLastWinner)
	if err != nil {
		return xerrors.Errorf("failed to read winner: %v", err)
	}

	fmt.Fprintf(a.out, "%s won %s in block %d\n", winner, bank.FormatValue(prize), receipt.BlockIndex)

	return nil
}

// playersAction lists the players of the lottery.
type playersAction struct {
	out io.Writer
}

func (a playersAction) Execute(flags cli.Flags) (err error) {
	h, err := ledger.ParseHandle(flags.String("instance"))
	if err != nil {
		return err
	}

	s, err := openSession(flags)
	if err != nil {
		return err
	}

	defer closeSession(s, &err)

	data, err := s.ledger.Call(s.ctx, h, lottery.QueryPlayers)
	if err != nil {
		return xerrors.Errorf("failed to read players: %v", err)
	}

	var players []string

	err = json.Unmarshal(data, &players)
	if err != nil {
		return xerrors.Errorf("failed to decode players: %v", err)
	}

	for i, player := range players {
		fmt.Fprintf(a.out, "%d\t%s\n", i, player)
	}

	return nil
}

// balanceAction prints the balance of an account or an instance.
type balanceAction struct {
	out io.Writer
}

func (a balanceAction) Execute(flags cli.Flags) (err error) {
	s, err := openSession(flags)
	if err != nil {
		return err
	}

	defer closeSession(s, &err)

	var identity access.Identity

	switch {
	case flags.String("instance") != "":
		h, err := ledger.ParseHandle(flags.String("instance"))
		if err != nil {
			return err
		}

		identity = h
	case flags.Int("account") >= 0:
		signer, err := s.account(flags)
		if err != nil {
			return err
		}

		identity = signer.GetPublicKey()
	default:
		return xerrors.New("either --account or --instance is required")
	}

	balance, err := s.ledger.BalanceOf(s.ctx, identity)
	if err != nil {
		return xerrors.Errorf("failed to read balance: %v", err)
	}

	fmt.Fprintln(a.out, bank.FormatValue(balance))

	return nil
}
