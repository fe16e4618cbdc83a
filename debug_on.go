//go:build blinkdebug

package blink

const debugChecks = true
