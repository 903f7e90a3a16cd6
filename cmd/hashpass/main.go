// hashpass prints the bcrypt hash for an operator password, for use as
// OPERATOR_PASSWORD_HASH.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/example/pos-settlement/internal/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpass <password>")
		os.Exit(2)
	}

	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		log.Fatalf("hashpass: %v", err)
	}
	fmt.Println(hash)
}
