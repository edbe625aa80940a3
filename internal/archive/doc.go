// Package archive moves a previous run's output directory out of the way
// instead of deleting it.
package archive
