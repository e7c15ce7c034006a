package main

import (
	"github.com/AzielCF/az-fleet/cmd"
)

func main() {
	cmd.Execute()
}
