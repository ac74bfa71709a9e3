// Package id generates identifiers for wines and navigation sessions.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	winePrefix    = "wine"
	sessionPrefix = "ses"
)

// NewWineID returns a fresh wine id, e.g. "wine-0b6c0c1e-...".
func NewWineID() string {
	return winePrefix + "-" + uuid.NewString()
}

// NewSessionID returns a prefixed NanoID for a navigation session, e.g.
// "ses-V1StGXR8_Z5jdHi6B-myT". NanoIDs are URL-safe and shorter than UUIDs,
// which matters since the front end echoes them in every request path.
func NewSessionID() (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return sessionPrefix + "-" + nid, nil
}
