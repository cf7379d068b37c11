// Package sequence manages the sequence catalog: drafting steps, publishing,
// pausing and archiving.
//
// Steps can only be added while a sequence is a draft. Archiving completes
// every live enrollment of the sequence in the same commit as the status
// change.
package sequence
