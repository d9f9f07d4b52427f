package main

import "github.com/funmoney-network/pplp/internal/cli"

func main() {
	cli.Execute()
}
