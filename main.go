package main

import (
	"log"

	"concert-ticketing/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
