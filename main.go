package main

import "github.com/agentic-research/canvas/cmd"

func main() {
	cmd.Execute()
}
