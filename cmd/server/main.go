package main

import (
	"context"
	"flag"
	"log"

	"drop-and-dodge/server/internal/app"
)

func main() {
	var addr string
	flag.StringVar(&addr, "addr", ":8080", "listen address")
	flag.Parse()

	if err := app.Run(context.Background(), app.Config{Addr: addr}); err != nil {
		log.Fatalf("%v", err)
	}
}
