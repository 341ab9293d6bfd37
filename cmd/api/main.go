package main

import (
	"fmt"
	"os"

	"github.com/sanosuguru/go-event-registration/internal/cli"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
)

func main() {
	err := cli.NewRootCommand().Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "エラー:", err)
		os.Exit(1)
	}
}
