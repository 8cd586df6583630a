package main

import "github.com/pfrederiksen/topdog/internal/cli"

func main() {
	cli.Execute()
}
