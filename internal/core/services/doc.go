// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The RevisionController is the only component with multi-step,
// failure-sensitive workflows; everything it does to the current and
// archive trees is sequenced so the catalog never references a file
// that does not exist.
package services
