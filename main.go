// Package main is the entry point for supersetctl, a CLI that manages Apache
// Superset datasets, charts and dashboards on behalf of users.
package main

import (
	"supersetctl/cli/cmd"
)

func main() {
	cmd.Execute()
}
