package main

import "github.com/mvp-joe/cortex-facts/internal/cli"

func main() {
	cli.Execute()
}
