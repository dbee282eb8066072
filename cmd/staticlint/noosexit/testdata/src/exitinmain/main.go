package main

import (
	"os"
	xos "os"
)

type server struct{}

func (server) Exit(code int) {}

func shutdown() {
	os.Exit(2)
}

func main() {
	var s server
	s.Exit(1)

	defer func() {
		os.Exit(3)
	}()

	if len(os.Args) > 2 {
		shutdown()
	}

	if len(os.Args) > 1 {
		xos.Exit(1) // want "avoid using os.Exit in main.main"
	}

	os.Exit(0) // want "avoid using os.Exit in main.main"
}
