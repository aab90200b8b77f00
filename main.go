package main

import "vulnviper/cmd"

func main() {
	cmd.Execute()
}
