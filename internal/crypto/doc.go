// Package crypto owns the fixed-length key and signature objects carried on the
// wire and the participant task-eligibility check.
//
// Ownership boundary:
// - byte objects (signatures, keys, seeds)
// - ed25519 signing/verification
// - sum/update task selection
//
// Key material generation and storage beyond a process lifetime are out of scope.
package crypto
