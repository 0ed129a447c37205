// SPDX-License-Identifier: MPL-2.0

// Package bundle identifies the units under test: relocatable Python bundles
// named <tag>-<arch>.AppImage, each paired with the version it declares.
//
// A Descriptor is built once per run from a Declaration and is never mutated.
// The expected version comes either inline from the configuration or from a
// shell file exporting PYTHON_VERSION, parsed with mvdan.cc/sh rather than
// by pattern matching so that quoting and comments are handled like a shell
// would.
package bundle
