/*
Package cipher defines the cryptographic collaborator of an encrypted table.

A Provider encrypts and decrypts field values under a KeyContext and produces
deterministic blind tokens under a BlindContext. The table never sees key
material; it only passes contexts through.

Local is a self-contained Provider for tests and single-process deployments.
Production deployments are expected to supply a Provider backed by a key
management service.
*/
package cipher
