package main

import "github.com/vibast-solutions/ms-go-fedapay-payments/cmd"

func main() {
	cmd.Execute()
}
