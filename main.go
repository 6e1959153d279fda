package main

import (
	"fmt"
	"os"
)

// Version information
const (
	Version = "0.1.0"
	Name    = "FlowState-Engine"
)

func main() {
	fmt.Printf("%s v%s\n", Name, Version)
	fmt.Println("Local state store subsystem for FlowState stream processing")
	fmt.Println("Status: Development")
	os.Exit(0)
}
