package main

import "github.com/jfxdev/go-transmission/internal/cli"

func main() {
	cli.Execute()
}
