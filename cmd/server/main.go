// Command server runs the wolf-tap reward server.
package main

import "wolf-tap/internal/cli"

func main() {
	cli.Execute()
}
