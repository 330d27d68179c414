package main

import "github.com/labrasa/salesdash/internal/cmd"

func main() {
	cmd.Execute()
}
