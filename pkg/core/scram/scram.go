// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scram exports the expected interface for Salted Challenge
// Response Authentication Mechanism (SCRAM) hashing. For the
// corresponding implementation, check the adapter layer.
//
// Only hash generation is required in this project: the `db init`
// bootstrap command sets database role passwords without sending
// plaintext passwords in DDL queries (so their possible logging is not
// a threat). The client and server sides of the SCRAM conversation are
// handled by the PostgreSQL server and its driver in the adapter
// layer, so no conversation interfaces are needed in this layer.
package scram

// Hasher represents the expectations from a SCRAM hasher
// implementation which for a specific underlying hash function (e.g.,
// SHA256) computes the storedKey and serverKey values whenever its
// Hash method is called with the relevant pass, salt, and iters
// arguments. Note that although a username is required in a SCRAM
// protocol run, it does not affect the storedKey and serverKey, hence,
// it is not asked by the Hasher interface.
type Hasher interface {
	// Hash computes a hash string following the standard scram hash
	// format, so it can be stored and used later for authentication.
	//
	// The pass argument must be non-empty; it will be normalized
	// according to the SASLprep profile (RFC 4013) of the stringprep
	// algorithm before hashing. The salt must contain a base64
	// encoding of the desired salt bytes; if an empty value is passed,
	// a random salt will be generated and used instead. The iters must
	// be at least 4096, while RFC 7677 recommends 15000 or more.
	//
	// In absence of errors, a hashed string with the following format
	// will be returned.
	//
	//	SCRAM-{SHA-X}${iters}:{b64-salt}${b64-storedKey}:{b64-serverKey}
	//
	// This string (consisting only of ASCII printable letters) can be
	// safely embedded in an ALTER or CREATE ROLE query.
	Hash(pass, salt string, iters int) (string, error)
}
