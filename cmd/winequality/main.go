package main

import "winequality/cli"

func main() {
	cli.Execute()
}
