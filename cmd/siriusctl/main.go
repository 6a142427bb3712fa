package main

import (
	"fmt"
	"os"

	"github.com/gottingen/sirius-go/internal/cli/command"
	"github.com/gottingen/sirius-go/internal/cli/repl"
)

func main() {
	if len(os.Args) > 1 {
		if err := command.App().Run(os.Args); err != nil {
			command.PrintError("%v", err)
			os.Exit(1)
		}
		return
	}

	app := command.App()
	r := repl.New()
	r.Dispatch = func(args []string) error {
		return app.Run(append([]string{app.Name}, args...))
	}

	fmt.Printf("%s %s — interactive mode, type 'exit' to quit\n", app.Name, app.Version)
	if err := r.Run(); err != nil {
		command.PrintError("%v", err)
		os.Exit(1)
	}
}
