package main

import (
	"github.com/mchmarny/healthscore/pkg/cli"
)

func main() {
	cli.Execute()
}
