package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goliatone/go-xview/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "xview:", err)
		os.Exit(1)
	}
}
