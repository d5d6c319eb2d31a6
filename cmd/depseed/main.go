package main

import "github.com/mvp-joe/depseed/internal/cli"

func main() {
	cli.Execute()
}
