package main

import "github.com/Alijeyrad/hairai_backend/cmd"

func main() {
	cmd.Execute()
}
