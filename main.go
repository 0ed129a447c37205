// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/niess/linuxdeploy-plugin-python/cmd/bundlecheck"

func main() {
	cmd.Execute()
}
