// Package pipeline sequences the pipeline stages in response to user
// selections: assembly, chromosome, gene, sequence window, ClinVar lookup and
// variant scoring.
//
// State is a plain value. Every user selection is a method returning the next
// State plus a Ticket naming the selection it was made under; every upstream
// answer is applied with that Ticket and dropped if the selection has moved on.
// Session wraps a State with the upstream services and a mutex so answers can
// arrive from concurrent calls.
package pipeline
