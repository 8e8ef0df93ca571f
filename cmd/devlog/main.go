package main

import "github.com/mlinna/devlog/cmd/devlog/commands"

func main() {
	commands.Execute()
}
