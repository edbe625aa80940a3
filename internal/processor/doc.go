// Package processor contains the core orchestration logic of transdata. It
// runs the split, translate and merge steps for the command line, chains
// them for the pipeline command, works through batch job files and records
// metrics for every run. This package serves as the main coordinator
// between all other components.
package processor
