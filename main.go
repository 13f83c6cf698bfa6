// The main package for the wiki-crawler executable.
package main

import (
	"github.com/JakeFAU/wiki-crawler/cmd"
)

func main() {
	cmd.Execute()
}
