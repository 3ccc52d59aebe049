// Package resolve binds the free-text entity mentions produced by
// extraction to concrete Home Assistant entities from the catalog.
//
// Every mention gets a resolution outcome: the bound entity with a match
// method and confidence, or an explicit unresolved record. Failures never
// abort a compile; unresolved mentions flow into validation diagnostics
// so the caller sees exactly which wording did not bind.
package resolve
