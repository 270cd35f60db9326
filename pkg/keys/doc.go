// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package keys holds the key directory: the read-only mapping from an
// application identifier to its shared secret and customer metadata. A
// directory is built once at process start, from the first external source
// that is present or from the built-in defaults, and is never mutated.
package keys
