package main

import (
	"github.com/mchmarny/advscorer/pkg/cli"
)

func main() {
	cli.Execute()
}
