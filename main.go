package main

import "datablocks/internal/cli"

func main() {
	cli.Execute()
}
