package ui

import (
	"os"
	"testing"

	"github.com/kastheco/discovery/log"
	zone "github.com/lrstanley/bubblezone"
)

func TestMain(m *testing.M) {
	log.Initialize(false)
	zone.NewGlobal()
	code := m.Run()
	log.Close()
	os.Exit(code)
}
