// Package authz provides the actor resolution and permission seams used when
// building buttons that depend on what the current actor may do. Gate pairs a
// Resolver with an Oracle; Policy is a small role based Oracle that can be
// loaded from JSON or YAML.
package authz
