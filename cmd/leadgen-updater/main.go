package main

import "github.com/arkhalid89/leadgen-bundler/cmd/leadgen-updater/cmd"

func main() {
	cmd.Execute()
}
