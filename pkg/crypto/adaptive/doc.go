// Package adaptive provides adaptive encryption for sirius-server's data at
// rest.
//
// This package implements a cipher abstraction that selects an encryption
// algorithm from the target architecture (runtime.GOARCH). internal/kv uses
// it to seal BadgerEngine snapshots whenever a security.encryption_key is
// configured.
//
// Supported Algorithms:
//
//   - AES-256-GCM: chosen by New on amd64 and arm64
//   - ChaCha20-Poly1305: chosen by New on every other architecture
//
// Features:
//
//   - Architecture-based selection: CPU features such as AES-NI are not probed
//   - AEAD: Authenticated encryption with associated data
//   - Key Derivation: DeriveKey turns an arbitrary-length secret into a key
//   - Thread Safety: All cipher operations are thread-safe
//
// Usage:
//
//	cipher, err := adaptive.New(adaptive.DeriveKey(passphrase))
//	encrypted, err := cipher.Encrypt(plaintext, aad)
//	plaintext, err := cipher.Decrypt(encrypted, aad)
package adaptive
