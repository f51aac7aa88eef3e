package main

import (
	"os"

	"github.com/ExtMailer/ExtMailer/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
