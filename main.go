// SPDX-License-Identifier: MIT
package main

import "github.com/skaphos/lockkeeper/cmd/lockkeeper"

// execute is overridable in tests.
var execute = lockkeeper.Execute

func main() {
	execute()
}
