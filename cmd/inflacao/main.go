package main

import "implied-inflation/internal/cli"

func main() {
	cli.Execute()
}
