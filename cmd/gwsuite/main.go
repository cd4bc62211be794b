package main

import (
	"github.com/kgateway-dev/gwsuite/cmd/gwsuite/cmd"
)

func main() {
	cmd.Execute()
}
