package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, domain.DisplayMessage(err))
		os.Exit(1)
	}
}
