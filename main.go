package main

import (
	"fmt"
	"os"

	"smart-budget-planner/cmd/forecast"
	importcmd "smart-budget-planner/cmd/import"
	"smart-budget-planner/cmd/root"
	"smart-budget-planner/cmd/serve"
	"smart-budget-planner/cmd/transactions"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(serve.Cmd)
	root.Cmd.AddCommand(forecast.Cmd)
	root.Cmd.AddCommand(importcmd.Cmd)
	root.Cmd.AddCommand(transactions.Cmd)
}

func main() {
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
