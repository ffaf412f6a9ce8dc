package main

import (
	"perspectivelens/cmd/cmd"
	"perspectivelens/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
