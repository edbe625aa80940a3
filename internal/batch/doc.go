// Package batch reads job files that list several split jobs for one run.
package batch
