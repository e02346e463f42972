// Package main provides the ITSLanguage CLI tool.
//
// Usage:
//
//	its [flags] <resource> <command> [args]
//
// Resources:
//
//	organisation             - Organisations
//	basicauth                - Basic auth accounts
//	student                  - Students of an organisation
//	speech-challenge         - Speech challenges
//	recording                - Speech recordings (get, download, stream)
//	pronunciation-challenge  - Pronunciation challenges
//	choice-challenge         - Choice challenges
//	config                   - Configuration management
//
// Configuration:
//
//	The CLI stores configuration in ~/.itslanguage/its/
//	Use 'its config' commands to manage contexts.
package main

import (
	"os"

	"github.com/joggienl/itslanguage-go/cmd/its/commands"
	"github.com/joggienl/itslanguage-go/pkg/cli"
)

func main() {
	if err := commands.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}
