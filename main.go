package main

import "github.com/danuzzo/bromium/cmd"

func main() {
	cmd.Execute()
}
