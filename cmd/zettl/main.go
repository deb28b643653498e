package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gregdefoy/zettl/internal/cli"
	"github.com/gregdefoy/zettl/internal/format"
)

func main() {
	if err := cli.New().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, format.Error(err.Error()))
		os.Exit(1)
	}
}
