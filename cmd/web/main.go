package main

import (
	"lightsout/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := server.Run(); err != nil {
		logrus.Fatal(err)
	}
}
