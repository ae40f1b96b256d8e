package main

import (
	"context"
	"flag"
	"log"

	"github.com/anandakmagar/authguard/internal/authctl"
)

func main() {

	server := flag.String("s", "http://localhost:8080", "auth server base URL")
	flag.Parse()

	ctx := context.Background()
	app := authctl.NewApp(*server)

	if err := app.Run(ctx, flag.Args()); err != nil {
		log.Fatalf("%v", err)
	}

}
