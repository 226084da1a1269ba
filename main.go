package main

import (
	cmd "github.com/mnemo-ai/mnemo/cmd/mnemo"
	"github.com/mnemo-ai/mnemo/internal"
)

var log = internal.GetLogger()

func main() {
	log.Info("Starting mnemo")
	cmd.Execute()
}
