package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// GenerateSessionID returns an identifier for one install of a purchase manager.
func GenerateSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func MustGenerateSessionID() string {
	id, err := GenerateSessionID()
	if err != nil {
		panic(fmt.Sprintf("failed to generate session id: %v", err))
	}

	return id
}

// GenerateOrderID returns a store-style order id with the given prefix, e.g.
// "GPA.3xQv...".
func GenerateOrderID(prefix string) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return prefix + base58.Encode(id[:]), nil
}

func MustGenerateOrderID(prefix string) string {
	id, err := GenerateOrderID(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate order id: %v", err))
	}

	return id
}
