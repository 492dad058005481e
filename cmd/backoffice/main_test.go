package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/consigna/backoffice/internal/app"
	_ "github.com/consigna/backoffice/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}
