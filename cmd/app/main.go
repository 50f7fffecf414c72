package main

import (
	"context"
	"log"

	"github.com/walletledger/service/internal/bootstrap"
)

func main() {
	server, err := bootstrap.NewServer(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	if err := server.Listen(); err != nil {
		log.Fatal(err)
	}
}
