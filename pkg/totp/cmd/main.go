package main

import (
	"fmt"
	"log"

	"github.com/dmitrymomot/twofactor/pkg/totp"
)

func main() {
	passphrase, err := totp.GeneratePassphrase()
	if err != nil {
		log.Fatalf("Failed to generate encryption passphrase: %v", err)
	}
	salt, err := totp.GeneratePassphrase()
	if err != nil {
		log.Fatalf("Failed to generate encryption salt: %v", err)
	}

	fmt.Printf("TOTP_ENCRYPTION_PASSPHRASE=%s\nTOTP_ENCRYPTION_SALT=%s\n", passphrase, salt)
}
