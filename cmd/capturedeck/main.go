package main

import "github.com/bryanchriswhite/CaptureDeck/cmd/capturedeck/commands"

func main() {
	commands.Execute()
}
