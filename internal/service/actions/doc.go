// Package actions materializes the daily action list: every active
// enrollment whose current step is due by the end of the reference day,
// best ICP tier first.
//
// The materializer is read-only; executing an action goes through the
// enrollment service with the version the action carried.
package actions
