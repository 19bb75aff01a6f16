package main

import "github.com/chupakbra/authelia-admin-cli/cli"

func main() {
	cli.Execute()
}
