package main

import "DeckCast/cmd"

func main() {
	cmd.Execute()
}
