package main

import "clouddisk-sync/cmd"

func main() {
	cmd.Execute()
}
