/*
Package ports defines the driven ports (interfaces) of the Stepwise engine.

These interfaces decouple the navigation core from external implementations, allowing
the engine to work with various definition sources, presentation layers and storage
backends.

# Key Interfaces

  - DefinitionSource: resolves a survey locator to raw definition bytes (file, HTTP, memory).
  - Renderer: draws a step and reads back the answers the user entered.
  - StateStore: persists session Snapshots for resume-after-reload.
  - SubmissionSink: archives completed SubmissionResults.
  - DistributedLocker: coordinates concurrent session access across replicas.
*/
package ports
