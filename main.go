package main

import "market-listing-alerts/internal/cli"

func main() {
	cli.Execute()
}
