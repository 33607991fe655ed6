// Package runtime implements the survey navigation state machine.
//
// A Machine owns one session: the loaded survey, the response store and the
// navigation state. It moves through NotInitialized, Ready and Completed,
// gating every forward move on step validation. Machines are single-owner
// and not safe for concurrent use; pkg/session and the root Wizard add locking.
package runtime
