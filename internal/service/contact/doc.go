// Package contact manages the contact registry and keeps each contact's
// cached ICP score in step with its signals.
package contact
