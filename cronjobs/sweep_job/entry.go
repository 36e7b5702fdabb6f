package main

import (
	"crypto-collector/app"
	Config "crypto-collector/config"
	"crypto-collector/tasks"
	"crypto-collector/utility/logger"
	"fmt"
)

func main() {
	fmt.Println("Starting Sweep Job")

	config := Config.Data{}
	config.Init("")
	if err := tasks.RequireSharedLocker(config); err != nil {
		logger.Fatal("Refusing to start sweep job : %s", err)
	}

	collector, err := app.New(config)
	if err != nil {
		logger.Fatal("Could not start sweep job : %s", err)
	}
	defer collector.Close()

	tasks.SweepOnce(collector.Registry)
}
