// ABOUTME: Entry point for the deskhand assistant
// ABOUTME: Hands off to the cobra command tree in the cli package
package main

import "github.com/harperreed/deskhand/cli"

const version = "0.1.0"

func main() {
	cli.Execute(version)
}
