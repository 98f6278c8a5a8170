package main

import (
	"github.com/kailas-cloud/pdfrag/internal/cli"
)

func main() {
	cli.Execute()
}
