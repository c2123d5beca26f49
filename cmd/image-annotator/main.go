package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	imageannotator "github.com/menta2k/image-annotator"
)

func main() {
	root := newRootCommand()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(imageannotator.Version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
