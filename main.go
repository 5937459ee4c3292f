package main

import "github.com/iksnae/hospital-console/cmd"

func main() {
	cmd.Execute()
}
