package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/blockberries/ledgerd/jsonrpc"
)

var nodeFlag = cli.StringFlag{
	Name:  "node",
	Usage: "JSON-RPC address of the node",
	Value: jsonrpc.DefaultAddr,
}

var Status = cli.Command{
	Name:   "status",
	Usage:  "prints the epoch and nonce of a running node",
	Action: status,
	Flags: []cli.Flag{
		&nodeFlag,
	},
}

var NewAccount = cli.Command{
	Name:   "new-account",
	Usage:  "creates a funded account on a running node",
	Action: newAccount,
	Flags: []cli.Flag{
		&nodeFlag,
	},
}

func status(ctx *cli.Context) error {
	client := jsonrpc.NewClient(ctx.String(nodeFlag.Name))
	st, err := client.Status(ctx.Context)
	if err != nil {
		return err
	}
	return printJSON(ctx, st)
}

func newAccount(ctx *cli.Context) error {
	client := jsonrpc.NewClient(ctx.String(nodeFlag.Name))
	res, err := client.NewAccount(ctx.Context)
	if err != nil {
		return err
	}
	return printJSON(ctx, res)
}

func printJSON(ctx *cli.Context, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.App.Writer, string(out))
	return err
}
