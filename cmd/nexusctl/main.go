package main

import (
	"context"

	"github.com/dmitrijs2005/newsnexus/internal/cli"
)

func main() {

	ctx := context.Background()
	cfg := cli.LoadConfig()
	cli.NewApp(cfg).Run(ctx)

}
