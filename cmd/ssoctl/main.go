package main

import (
	"github.com/awnumar/memguard"

	"github.com/MediSynth-io/medisynth-sso/cmd/ssoctl/cmd"
)

func main() {
	memguard.CatchInterrupt()
	defer memguard.Purge()

	cmd.Execute()
}
