package main

import "github.com/bugline/bugline/cli/commands"

func main() {
	commands.Execute()
}
