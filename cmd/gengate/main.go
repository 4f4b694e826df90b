// Package main is the entry point for Gengate.
package main

func main() {
	Execute()
}
