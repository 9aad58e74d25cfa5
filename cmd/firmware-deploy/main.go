package main

import "github.com/oshokin/firmware-deploy/cmd/firmware-deploy/cmd"

func main() {
	cmd.Execute()
}
