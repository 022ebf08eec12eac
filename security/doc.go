// Package security implements the credential vault: field-level AES-256-GCM
// encryption of integration configs and display masking.
package security
