package main

import "github.com/cogniteev/easy-upgrade/cmd/easy-upgrade/cmd"

func main() {
	cmd.Execute()
}
