// Command page-loader saves a web page together with its local resources.
package main

import "github.com/gaurav-prasanna/pageloader/cmd"

func main() {
	cmd.Execute()
}
