// Command faceswap transplants the face of one photo onto every photo of a
// directory.
package main

func main() {
	Execute()
}
