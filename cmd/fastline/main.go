// Fastline CLI — track intermittent fasts from the command line.
//
// Usage:
//
//	fastline <command> [flags]
//
// Commands:
//
//	start     Begin a fast
//	stop      End the current fast
//	status    Show the current fast (or the running API server)
//	list      List recorded fasts
//	day       Show one day's 24-hour timeline
//	month     Show a month of timelines
//	stats     Summary statistics and trends
//	export    Write all data as JSON
//	import    Load a JSON export
//	delete    Remove a fast
//	theme     Show or set the color theme
//	version   Print version information
package main

func main() {
	Execute()
}
