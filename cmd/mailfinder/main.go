// Command mailfinder resolves a person's email address from the terminal
// without the HTTP service or its stores.
package main

func main() {
	Execute()
}
