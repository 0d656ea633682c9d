package main

import (
	"github.com/pressly/goose/v3"

	appfs "github.com/trezcool/lingo/fs"
)

// gooseRunFunc runs against appfs.FS, the database package sets it as the goose base FS.
var gooseRunFunc = goose.Run

// migrate runs the goose command args[0] with the rest of args.
func (cli *commandLine) migrate(args []string) error {
	command, rest := args[0], args[1:]
	return gooseRunFunc(command, cli.db, appfs.MigrationsDir, rest...)
}
