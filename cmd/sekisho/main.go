// Command sekisho is the operator client for a permit-issuing decision service.
package main

import "github.com/gatten-sekisho/sekisho/cmd/sekisho/cmd"

func main() {
	cmd.Execute()
}
