package config

import (
	"fmt"
	"log"
)

func NonEmpty(value, envName string) error {
	if value == "" {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}

func MustValid(cfg Config) {
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
}
