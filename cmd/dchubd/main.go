// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// dchubd is the hub server's entrypoint: it wires configuration, storage,
// the hub engine, and the built-in bots together and runs until signaled.
package main

func main() {
	Execute()
}
