package main

import "github.com/oshokin/nix-npm-updater/cmd/update/cmd"

func main() {
	cmd.Execute()
}
