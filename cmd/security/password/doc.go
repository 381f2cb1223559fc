// Package password is the one-way credential verifier used by the auth core.
//
// It implements Argon2id hashing with a PHC-style encoded string format:
//   - Configurable cost parameters (via environment variables)
//   - Length policy validation
//   - Strict hash decoding and constant-time verification with anti-DoS bounds
//
// Security notes:
//   - Encoded hashes are treated as untrusted input during Verify; a malformed
//     or unsupported hash verifies false, it never panics.
//   - Verification refuses hashes whose parameters exceed reasonable bounds.
package password
