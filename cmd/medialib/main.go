package main

import "github.com/henrlaas/medialib/cli"

func main() {
	cli.Execute()
}
