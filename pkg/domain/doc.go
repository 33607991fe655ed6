/*
Package domain contains the core domain models of the Stepwise survey engine.

It defines the declarative survey structure (Survey, Step, Question), the mutable
session state (ResponseMap, NavigationState) and the values the engine hands back to
its host (Violation, SubmissionResult). This package is kept pure and free of I/O,
following Hexagonal Architecture principles.

# Key Entities

  - Survey: the immutable definition loaded from a declarative resource.
  - Step: one screen's worth of questions, optionally guarded by a Condition.
  - Question: one answerable prompt with a type and validation Rules.
  - NavigationState: the position of a session inside the survey.
  - Snapshot: the serializable pair (NavigationState, ResponseMap) used for resume.
  - SubmissionResult: the final payload handed to the host on completion.
*/
package domain
