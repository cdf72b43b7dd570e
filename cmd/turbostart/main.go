package main

import "github.com/set-night/turbostart/internal/cli"

func main() {
	cli.Execute()
}
