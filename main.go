// Command containerpoller tracks container status milestones at terminal portals.
package main

import "github.com/JakeFAU/container-status-poller/cmd"

func main() {
	cmd.Execute()
}
