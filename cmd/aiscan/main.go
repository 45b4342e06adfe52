package main

import (
	"os"

	"horse.fit/aiscan/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
