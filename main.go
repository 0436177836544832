package main

import (
	"os"

	"github.com/josephlewis42/visionsh/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
