// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include environment variable management (MustSetenv, MustUnsetenv),
// directory operations (MustChdir, MustMkdirAll), host requirements (RequireBash),
// and WriteFakeBundle, a shell script standing in for a Python bundle so that
// probe, venv and pip round trips can be exercised without a real AppImage.
package testutil
