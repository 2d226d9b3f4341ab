// Package report renders extraction runs and graph queries for terminals.
//
// Tables use a kubectl-style layout: no borders, left aligned, tab padded.
// Colors are applied only when the writer is a terminal.
package report
