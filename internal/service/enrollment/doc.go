// Package enrollment implements the lifecycle of one contact in one sequence.
//
// An enrollment is classified into a sealed state (Active, Paused or Terminal)
// and transitions exist only as methods on the states they are legal from.
// The Service loads the record, classifies it, picks the transition and
// commits the new row together with its single audit Activity through the
// Repository, using the row version for optimistic concurrency.
//
// Repository implementations live in repository/postgres/ and repository/memory/.
package enrollment
