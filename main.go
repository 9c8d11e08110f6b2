// Command jobsearch aggregates job postings for a title, location and
// recency window.
//
// Usage:
//
//	jobsearch serve --config config.yaml
//	jobsearch search --title "Go Developer" --city Toronto --country Canada
//
// Configuration comes from an optional YAML file, an optional .env file and
// JOBSEARCH_* environment variables (PORT is honored for the listen port).
package main

import "github.com/JakeFAU/jobsearch-aggregator/cmd"

func main() {
	cmd.Execute()
}
