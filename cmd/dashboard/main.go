package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mohammed-shakir/br-emissions/internal/cli"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.NewRootCmd(Version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
