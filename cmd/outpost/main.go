package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MrSnakeDoc/outpost/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "❌ outpost: %v\n", err)
		os.Exit(1)
	}
}
