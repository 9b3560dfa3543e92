package main

import (
	"github.com/eleven-am/speech-gateway/internal/bootstrap"
)

func main() {
	bootstrap.Run()
}
