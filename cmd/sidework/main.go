package main

import "github.com/helena/sidework/cmd/sidework/commands"

func main() {
	commands.Execute()
}
