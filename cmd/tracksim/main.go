// Command tracksim builds a similarity index over an audio library and finds
// the library tracks that sound most like a query recording.
package main

func main() {
	Execute()
}
