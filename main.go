package main

import "github.com/SharanyanRaghavan/EBirdAnalysis/cmd"

func main() {
	cmd.Execute()
}
