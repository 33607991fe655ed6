/*
Package session runs many survey sessions side by side.

Manager serialises access to each session ID with reference-counted mutexes and,
when configured, a DistributedLocker shared by server replicas. Service binds a
Manager to one survey: every call loads the session snapshot, replays it into a
navigation state machine, applies the operation and saves the result.
*/
package session
