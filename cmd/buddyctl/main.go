// Command buddyctl exercises and reports on a fixed-arena buddy allocator.
package main

func main() {
	execute()
}
