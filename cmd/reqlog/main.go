// reqlog CLI - manage captured HTTP request/response log artifacts.
package main

import "github.com/getreqlog/reqlog/pkg/cli"

func main() {
	cli.Execute()
}
